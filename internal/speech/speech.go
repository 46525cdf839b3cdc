// Package speech plays reply text aloud without holding up the reply.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultPlaybackTimeout = time.Minute

// Speaker renders text as audio and blocks until playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// CommandSpeaker pipes text to an external synthesizer such as espeak-ng.
type CommandSpeaker struct {
	name string
	args []string
}

// NewCommandSpeaker returns a speaker that runs name with args and the text
// appended as the final argument.
func NewCommandSpeaker(name string, args ...string) *CommandSpeaker {
	return &CommandSpeaker{name: name, args: args}
}

// Speak runs the synthesizer.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	args := append(append([]string{}, s.args...), text)
	out, err := exec.CommandContext(ctx, s.name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", s.name, err, out)
	}
	return nil
}

// Dispatcher queues text for a single background playback worker. Say never
// blocks: when the queue is full the text is dropped.
type Dispatcher struct {
	speaker Speaker
	queue   chan string
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewDispatcher starts the worker. Callers must Close it.
func NewDispatcher(speaker Speaker, queueSize int, logger *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		speaker: speaker,
		queue:   make(chan string, queueSize),
		timeout: defaultPlaybackTimeout,
		logger:  logger.Named("speech"),
		ctx:     ctx,
		cancel:  cancel,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Say enqueues text for playback.
func (d *Dispatcher) Say(text string) {
	if text == "" {
		return
	}
	select {
	case <-d.ctx.Done():
	case d.queue <- text:
	default:
		d.logger.Debug("speech queue full, dropping text")
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case text := <-d.queue:
			if d.ctx.Err() != nil {
				return
			}
			ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
			if err := d.speaker.Speak(ctx, text); err != nil {
				d.logger.Warn("speech playback failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Close stops the worker, abandoning queued text and interrupting playback.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.cancel()
		d.wg.Wait()
	})
}

// Silent discards everything. It stands in for the dispatcher in headless
// deployments.
type Silent struct{}

func (Silent) Say(string) {}
