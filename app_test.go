package main

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"introspect/internal/domain"
	"introspect/internal/settings"
	"introspect/internal/usecase"
	"introspect/internal/vitals"
)

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonReady:            "Ready",
		domain.SessionReasonRecordingStarted: "Monitoring started",
		domain.SessionReasonSummarizing:      "Session stopped. Generating summary...",
		domain.SessionReasonSummarySaved:     "Summary saved to History",
		domain.SessionReasonNoData:           "Session stopped. No data collected.",
		domain.SessionReasonSummaryFailed:    "Summary failed",
		domain.SessionReasonHistoryFailed:    "Summary could not be saved",
		domain.SessionReasonDiscarded:        "Session discarded",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:    "Startup failed",
		domain.ErrorCodeCapture:    "Vitals capture issue",
		domain.ErrorCodeAnalysis:   "Analysis error",
		domain.ErrorCodeConnection: "Connection Error",
		domain.ErrorCodeSpeech:     "Speech generation failed",
		domain.ErrorCodePlayback:   "Audio playback failed",
		domain.ErrorCodeSummary:    "Summary Error",
		domain.ErrorCodeHistory:    "History write failed",
		domain.ErrorCodeSettings:   "Settings update failed",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
	if _, err := app.StartSession(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error from StartSession, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.SessionStateIdle || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.State != domain.SessionStateIdle || status.Active || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
}

func TestEventsAreEmittedOnlyWithContext(t *testing.T) {
	t.Parallel()

	rec := &emitRecorder{}
	app := &App{emit: rec.emit}
	app.SessionError(domain.ErrorCodeSummary, "boom")
	if len(rec.names) != 0 {
		t.Fatalf("expected no events without a runtime context")
	}

	app.ctx = context.Background()
	app.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonNoData)
	app.FeedbackChanged(domain.LiveFeedback{Kind: domain.FeedbackInsight, Insight: "Breathe.", Expression: "Calm"})
	app.VitalsUpdated(72, 14, 3.5)
	app.SummarySaved(domain.SessionSummary{ID: "s1"})
	app.SessionError(domain.ErrorCodeConnection, "refused")

	want := []string{eventSession, eventFeedback, eventVitals, eventSummary, eventError}
	if len(rec.names) != len(want) {
		t.Fatalf("unexpected events: %v", rec.names)
	}
	for i := range want {
		if rec.names[i] != want[i] {
			t.Fatalf("event %d: got %q, want %q", i, rec.names[i], want[i])
		}
	}

	session := rec.payloads[0].(map[string]string)
	if session["message"] != "Session stopped. No data collected." {
		t.Fatalf("unexpected session payload: %v", session)
	}
	feedback := rec.payloads[1].(map[string]string)
	if feedback["insight"] != "Breathe." || feedback["expression"] != "Calm" {
		t.Fatalf("unexpected feedback payload: %v", feedback)
	}
}

func TestPushVitalsAndSettings(t *testing.T) {
	t.Parallel()

	store, err := settings.Open("")
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	feed := vitals.NewFeed()
	app := &App{
		controller: usecase.NewSessionController(usecase.Deps{}, usecase.Config{}),
		settings:   store,
		feed:       feed,
	}

	// Readings before a session starts are ignored.
	if err := app.PushVitals(70, 12, 1, ""); err != nil {
		t.Fatalf("push before start: %v", err)
	}

	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("start feed: %v", err)
	}
	if err := app.PushVitals(72, 13, 2, ""); err != nil {
		t.Fatalf("push: %v", err)
	}
	if got := <-feed.Readings(); got.PulseRate != 72 || got.Frame != nil {
		t.Fatalf("unexpected reading: %+v", got)
	}
	if err := app.PushVitals(72, 13, 3, base64.StdEncoding.EncodeToString([]byte("nope"))); err == nil {
		t.Fatalf("expected frame decode error")
	}

	updated, err := app.ToggleFeedbackFormat(domain.FeedbackFormatAudio)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if updated.HasFeedbackFormat(domain.FeedbackFormatAudio) {
		t.Fatalf("expected audio to be deselected: %+v", updated.FeedbackFormats)
	}
	current, err := app.GetSettings()
	if err != nil || current.HasFeedbackFormat(domain.FeedbackFormatAudio) {
		t.Fatalf("settings not persisted in store: %+v %v", current, err)
	}

	bad := current
	bad.ContentMode = "Facts"
	if _, err := app.UpdateSettings(bad); err == nil {
		t.Fatalf("expected invalid settings error")
	}
}

type emitRecorder struct {
	mu       sync.Mutex
	names    []string
	payloads []interface{}
}

func (r *emitRecorder) emit(_ context.Context, name string, data ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	if len(data) > 0 {
		r.payloads = append(r.payloads, data[0])
	} else {
		r.payloads = append(r.payloads, nil)
	}
}
