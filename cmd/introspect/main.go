package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"introspect/internal/bootstrap"
	"introspect/internal/domain"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configFile string
	logDir     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "introspect",
		Short:         "Headless IntroSpect vitals session runner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default: <user config dir>/introspect/config.yaml)")
	root.PersistentFlags().StringVar(&flags.logDir, "log-dir", "", "log directory (overrides INTROSPECT_LOG_PATH)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "mirror logs to stderr")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newHistoryCmd(flags))
	root.AddCommand(newSettingsCmd(flags))
	return root
}

func loadServices(cmd *cobra.Command, flags *globalFlags, sink *printSink, replayDir string) (bootstrap.Services, error) {
	opts := bootstrap.Options{
		ConfigFile: flags.configFile,
		LogDir:     flags.logDir,
		ReplayDir:  replayDir,
	}
	if flags.verbose {
		opts.Console = cmd.ErrOrStderr()
	}
	return bootstrap.Build(sink, opts)
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var replayDir string
	var duration time.Duration

	run := &cobra.Command{
		Use:   "run --replay <dir>",
		Short: "Run one monitoring session against a recorded vitals session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sink := newPrintSink(cmd.OutOrStdout())
			services, err := loadServices(cmd, flags, sink, replayDir)
			if err != nil {
				return err
			}
			defer services.Close()
			if services.Feed != nil {
				return fmt.Errorf("run needs a recording: pass --replay or set vitals.replay_dir")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := services.Controller.Start(ctx); err != nil {
				return err
			}
			if duration > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(duration):
				}
			} else {
				<-ctx.Done()
			}

			result, err := services.Controller.Stop(context.Background())
			if err != nil {
				return err
			}
			sink.printf("session %s: %d insights, %s\n", result.SessionID, result.Insights, result.Reason)
			return nil
		},
	}
	run.Flags().StringVar(&replayDir, "replay", "", "recorded session directory (readings.jsonl + frames)")
	run.Flags().DurationVar(&duration, "duration", 0, "stop after this long (default: until interrupted)")
	return run
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	history := &cobra.Command{Use: "history", Short: "Saved session summaries"}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved summaries, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := loadServices(cmd, flags, newPrintSink(cmd.OutOrStdout()), "")
			if err != nil {
				return err
			}
			defer services.Close()

			summaries, err := services.History.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			if len(summaries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions yet")
				return nil
			}
			for _, s := range summaries {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%dmin\t%dbpm\t%s\n", s.ID, s.Date.Local().Format("2006-01-02 15:04"), s.DurationMinutes, s.AverageHeartRate, s.Headline)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one saved summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := loadServices(cmd, flags, newPrintSink(cmd.OutOrStdout()), "")
			if err != nil {
				return err
			}
			defer services.Close()

			s, err := services.History.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "id: %s\nsession: %s\ndate: %s\nduration: %d min\naverage heart rate: %d bpm\ninsights: %d\nmost common emotion: %s\n\n%s\n",
				s.ID, s.SessionID, s.Date.Local().Format(time.RFC1123), s.DurationMinutes, s.AverageHeartRate, s.TotalInsights, s.MostCommonEmotion, s.FullText)
			return nil
		},
	}

	history.AddCommand(list, show)
	return history
}

func newSettingsCmd(flags *globalFlags) *cobra.Command {
	settings := &cobra.Command{Use: "settings", Short: "User settings"}

	settings.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := loadServices(cmd, flags, newPrintSink(cmd.OutOrStdout()), "")
			if err != nil {
				return err
			}
			defer services.Close()
			return writeJSON(cmd.OutOrStdout(), services.Settings.Current())
		},
	})

	var contentMode, voice string
	var formats []string
	var pulse, breath, expressions bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Change settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := loadServices(cmd, flags, newPrintSink(cmd.OutOrStdout()), "")
			if err != nil {
				return err
			}
			defer services.Close()

			next := services.Settings.Current()
			if cmd.Flags().Changed("content-mode") {
				next.ContentMode = contentMode
			}
			if cmd.Flags().Changed("formats") {
				next.FeedbackFormats = formats
			}
			if cmd.Flags().Changed("voice") {
				next.VoiceID = strings.TrimSpace(voice)
			}
			if cmd.Flags().Changed("pulse") {
				next.PulseRateEnabled = &pulse
			}
			if cmd.Flags().Changed("breath") {
				next.BreathRateEnabled = &breath
			}
			if cmd.Flags().Changed("expressions") {
				next.ExpressionsEnabled = &expressions
			}

			saved, err := services.Settings.Update(next)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), saved)
		},
	}
	set.Flags().StringVar(&contentMode, "content-mode", "", fmt.Sprintf("one of %q", domain.ContentModeOptions))
	set.Flags().StringSliceVar(&formats, "formats", nil, fmt.Sprintf("one or two of %q", domain.FeedbackFormatOptions))
	set.Flags().StringVar(&voice, "voice", "", "speech voice id")
	set.Flags().BoolVar(&pulse, "pulse", true, "show pulse rate")
	set.Flags().BoolVar(&breath, "breath", true, "show breathing rate")
	set.Flags().BoolVar(&expressions, "expressions", true, "show expressions")

	settings.AddCommand(set)
	return settings
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSink renders session events as terminal lines.
type printSink struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrintSink(out io.Writer) *printSink {
	return &printSink{out: out}
}

func (p *printSink) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *printSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	p.printf("state: %s (%s)\n", state, reason)
}

func (p *printSink) FeedbackChanged(feedback domain.LiveFeedback) {
	p.printf("[%s] %s\n", feedback.Expression, feedback.Insight)
}

func (p *printSink) VitalsUpdated(int, int, float64) {}

func (p *printSink) SummarySaved(summary domain.SessionSummary) {
	p.printf("saved %s: %s (%d bpm avg)\n", summary.ID, summary.Headline, summary.AverageHeartRate)
}

func (p *printSink) SessionError(code domain.ErrorCode, detail string) {
	p.printf("error %s: %s\n", code, detail)
}
