package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"introspect/internal/domain"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("INTROSPECT_LOG_PATH", filepath.Join(home, "logs"))
	return home
}

func TestBuildSuccess(t *testing.T) {
	home := isolate(t)
	t.Setenv("INTROSPECT_HISTORY_PATH", filepath.Join(home, "history.db"))

	services, err := Build(noopEventSink{}, Options{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
	if services.Feed == nil {
		t.Fatalf("expected push feed when no replay dir is configured")
	}
	if services.Controller.Status().State != domain.SessionStateIdle {
		t.Fatalf("expected idle controller")
	}
	list, err := services.History.List(context.Background())
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty history, got %v %v", list, err)
	}
	if _, err := os.Stat(filepath.Join(home, "logs", "diagnostics_log.txt")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestBuildWithReplay(t *testing.T) {
	isolate(t)

	services, err := Build(noopEventSink{}, Options{ReplayDir: t.TempDir()})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if services.Feed != nil {
		t.Fatalf("replay source should not expose a push feed")
	}
	// The empty recording only fails once a session starts.
	if err := services.Controller.Start(context.Background()); err == nil {
		t.Fatalf("expected start to fail on an empty recording")
	}
}

func TestBuildFailsOnInvalidSettings(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "settings.yaml")
	if err := os.WriteFile(path, []byte("feedbackFormats: [Facts]\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("INTROSPECT_SETTINGS_PATH", path)

	if _, err := Build(noopEventSink{}, Options{}); err == nil {
		t.Fatalf("expected build error due to invalid settings")
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(_ domain.SessionState, _ domain.SessionStateReason) {}
func (noopEventSink) FeedbackChanged(_ domain.LiveFeedback)                                  {}
func (noopEventSink) VitalsUpdated(_ int, _ int, _ float64)                                  {}
func (noopEventSink) SummarySaved(_ domain.SessionSummary)                                   {}
func (noopEventSink) SessionError(_ domain.ErrorCode, _ string)                              {}
