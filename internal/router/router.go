package router

import (
	"context"
	"html"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/classifier"
	"github.com/themobileprof/commandbot/internal/logging"
	"github.com/themobileprof/commandbot/internal/metrics"
	"github.com/themobileprof/commandbot/internal/privacy"
	"github.com/themobileprof/commandbot/internal/store"
)

var (
	segmentSeparator = regexp.MustCompile(`\band\b|;`)
	// Quotes and angle brackets end a URL so it cannot leave the href.
	urlPattern = regexp.MustCompile(`(https?://[^\s"'<>]+)`)
)

const (
	storeTimeout    = 2 * time.Second
	recordQueueSize = 64
)

// Interfaces for dependencies
type ClassifierInterface interface {
	Classify(segment string) classifier.Result
}

type SkillsInterface interface {
	Handle(ctx context.Context, r classifier.Result) string
}

// SpeakerInterface accepts text for playback without blocking.
type SpeakerInterface interface {
	Say(text string)
}

type StoreInterface interface {
	SaveInteraction(ctx context.Context, in store.Interaction) error
}

// Reply is the composed answer to one utterance.
type Reply struct {
	RequestID string `json:"request_id"`
	// Text is the HTML-escaped response with URLs wrapped in anchor markup.
	Text string `json:"text"`
	// Plain is the response before link markup, suitable for speech.
	Plain   string              `json:"plain"`
	Intents []classifier.Intent `json:"intents"`
}

// Options carries the optional collaborators.
type Options struct {
	Speaker SpeakerInterface
	Store   StoreInterface
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Router splits an utterance into segments, dispatches each one and
// composes the reply. It is transport-agnostic and safe for concurrent use.
type Router struct {
	classifier ClassifierInterface
	skills     SkillsInterface
	speaker    SpeakerInterface
	store      StoreInterface
	metrics    *metrics.Metrics
	logger     *zap.Logger

	records chan store.Interaction
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// New creates a router. With a store configured it starts the background
// interaction writer; call Close to flush it.
func New(cls ClassifierInterface, sk SkillsInterface, opts Options) *Router {
	r := &Router{
		classifier: cls,
		skills:     sk,
		speaker:    opts.Speaker,
		store:      opts.Store,
		metrics:    opts.Metrics,
		logger:     logging.OrNop(opts.Logger).Named("router"),
	}
	if r.store != nil {
		r.records = make(chan store.Interaction, recordQueueSize)
		r.wg.Add(1)
		go r.writeRecords()
	}
	return r
}

// Process answers an utterance. Domain failures are already folded into
// the reply text, so there is no error return.
func (r *Router) Process(ctx context.Context, utterance string) Reply {
	start := time.Now()
	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	segments := Split(utterance)
	fragments := make([]string, 0, len(segments))
	intents := make([]classifier.Intent, 0, len(segments))

	for _, segment := range segments {
		result := r.classifier.Classify(segment)
		r.metrics.ObserveSegment(string(result.Intent))
		r.logger.Debug("segment classified",
			zap.String("request_id", requestID),
			zap.String("segment", privacy.SanitizeForLogging(segment)),
			zap.String("intent", string(result.Intent)),
		)

		fragments = append(fragments, r.skills.Handle(ctx, result))
		intents = append(intents, result.Intent)
	}

	plain := strings.Join(fragments, " ")
	reply := Reply{
		RequestID: requestID,
		Text:      Linkify(html.EscapeString(plain)),
		Plain:     plain,
		Intents:   intents,
	}

	if r.speaker != nil {
		r.speaker.Say(plain)
	}
	r.record(utterance, reply)

	elapsed := time.Since(start)
	r.metrics.ObserveUtterance(elapsed)
	r.logger.Info("utterance processed",
		zap.String("request_id", requestID),
		zap.String("utterance", privacy.SanitizeForLogging(utterance)),
		zap.Bool("redacted", privacy.ContainsPII(utterance)),
		zap.Int("segments", len(segments)),
		zap.Duration("duration", elapsed),
	)
	return reply
}

// record queues the interaction for the background writer. It never waits
// on the database; a full queue drops the entry.
func (r *Router) record(utterance string, reply Reply) {
	if r.store == nil {
		return
	}

	names := make([]string, len(reply.Intents))
	for i, in := range reply.Intents {
		names[i] = string(in)
	}
	in := store.Interaction{
		RequestID: reply.RequestID,
		Utterance: utterance,
		Response:  reply.Plain,
		Intents:   names,
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.records <- in:
	default:
		r.logger.Warn("interaction queue full, dropping entry", zap.String("request_id", reply.RequestID))
	}
}

func (r *Router) writeRecords() {
	defer r.wg.Done()
	for in := range r.records {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := r.store.SaveInteraction(ctx, in); err != nil {
			r.logger.Warn("failed to save interaction",
				zap.String("request_id", in.RequestID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Close flushes queued interactions and stops the writer. Process keeps
// working afterwards but no longer records.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed || r.records == nil {
		r.closed = true
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.records)
	r.mu.Unlock()
	r.wg.Wait()
}

// Split lower-cases and trims utterance, then cuts it on the word "and" and
// on semicolons. Pieces are trimmed; empty pieces are kept so every
// separator yields a segment.
func Split(utterance string) []string {
	text := strings.ToLower(strings.TrimSpace(utterance))
	parts := segmentSeparator.Split(text, -1)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Linkify wraps every http(s) URL in an anchor that opens in a new tab.
// Run it once on the composed, already escaped text.
func Linkify(text string) string {
	return urlPattern.ReplaceAllString(text, `<a href="${1}" target="_blank">${1}</a>`)
}
