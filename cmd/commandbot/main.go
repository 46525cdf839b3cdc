package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/themobileprof/commandbot/internal/app"
	"github.com/themobileprof/commandbot/internal/config"
	"github.com/themobileprof/commandbot/internal/router"
)

var (
	// Global flags
	verbose  bool
	headless bool
	html     bool
	record   bool

	logger *zap.Logger
)

// Processor answers one utterance.
type Processor interface {
	Process(ctx context.Context, utterance string) router.Reply
}

var rootCmd = &cobra.Command{
	Use:   "commandbot",
	Short: "Answer compound commands from the terminal",
	Long: `commandbot splits an utterance on "and" or ";", answers each part
(time, weather, news, math, lookups, reminders) and prints the joined reply.

Run without arguments to start an interactive session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(ctx context.Context, p Processor) error {
			return runREPL(ctx, p, cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [utterance]",
	Short: "Answer a single utterance",
	Example: `  commandbot ask "what time is it and weather in pune"
  commandbot ask --html "search for golang"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(ctx context.Context, p Processor) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), answer(ctx, p, strings.Join(args, " ")))
			return err
		})
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), func(ctx context.Context, p Processor) error {
			return runREPL(ctx, p, cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Disable speech playback and browser launch")
	rootCmd.PersistentFlags().BoolVar(&html, "html", false, "Print replies with link markup")
	rootCmd.PersistentFlags().BoolVar(&record, "record", false, "Write interactions to DATABASE_URL when set")

	rootCmd.AddCommand(askCmd, replCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func withPipeline(ctx context.Context, fn func(context.Context, Processor) error) error {
	cfg, _, err := config.Load()
	if err != nil {
		return err
	}
	if headless {
		cfg.Headless = true
	}

	bot, err := app.New(ctx, cfg, logger, app.Options{SkipStore: !record})
	if err != nil {
		return err
	}
	defer bot.Close()

	return fn(ctx, bot.Router)
}

func answer(ctx context.Context, p Processor, utterance string) string {
	reply := p.Process(ctx, utterance)
	if html {
		return reply.Text
	}
	return reply.Plain
}

// runREPL reads one utterance per line until EOF, "exit" or "quit".
func runREPL(ctx context.Context, p Processor, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprintln(out, answer(ctx, p, line))
	}
}
