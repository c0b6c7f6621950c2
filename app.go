package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"introspect/internal/bootstrap"
	"introspect/internal/config"
	"introspect/internal/domain"
	"introspect/internal/settings"
	"introspect/internal/usecase"
	"introspect/internal/vitals"
)

const (
	eventSession  = "introspect:session"
	eventFeedback = "introspect:feedback"
	eventVitals   = "introspect:vitals"
	eventSummary  = "introspect:summary"
	eventError    = "introspect:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	services   bootstrap.Services
	controller *usecase.SessionController
	settings   *settings.Store
	feed       *vitals.Feed
	cfg        config.Config
	bootErr    error

	// emit is swapped in tests.
	emit func(ctx context.Context, name string, data ...interface{})
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, bootstrap.Options{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.cfg = services.Config
	a.controller = services.Controller
	a.settings = services.Settings
	a.feed = services.Feed
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

// shutdown finishes a running session before the window goes away.
func (a *App) shutdown(ctx context.Context) {
	if a.controller != nil && a.controller.Status().State == domain.SessionStateRecording {
		if _, err := a.controller.Stop(ctx); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
			a.services.Logger.Warn().Err(err).Msg("shutdown_stop_failed")
		}
	}
	if err := a.services.Close(); err != nil {
		a.services.Logger.Warn().Err(err).Msg("shutdown_close_failed")
	}
}

// StartSession starts a monitoring session.
func (a *App) StartSession() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopSession stops monitoring and returns the summary outcome.
func (a *App) StopSession() (domain.StopResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StopResult{}, err
	}
	result, err := a.controller.Stop(a.ctx)
	if errors.Is(err, usecase.ErrNoActiveSession) {
		return domain.StopResult{}, nil
	}
	return result, err
}

// AbortSession discards an in-progress session.
func (a *App) AbortSession() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Abort(a.ctx); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		return err
	}
	return nil
}

// PushVitals forwards one reading from the vitals SDK bridge. frame is a
// base64 JPEG or PNG and may be empty.
func (a *App) PushVitals(pulse int, breath int, timestamp float64, frame string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if a.feed == nil {
		return errors.New("vitals are replayed from a recording")
	}

	reading := domain.Reading{PulseRate: pulse, BreathRate: breath, Timestamp: timestamp}
	if frame != "" {
		decoded, err := vitals.DecodeFrame(frame)
		if err != nil {
			return err
		}
		reading.Frame = decoded
	}
	if err := a.feed.Publish(reading); err != nil && !errors.Is(err, vitals.ErrNotRunning) {
		return err
	}
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateIdle, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// ListHistory returns saved summaries, most recent first.
func (a *App) ListHistory() ([]domain.SessionSummary, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.History.List(a.ctx)
}

// GetSummary returns one saved summary for the detail view.
func (a *App) GetSummary(id string) (domain.SessionSummary, error) {
	if err := a.requireReady(); err != nil {
		return domain.SessionSummary{}, err
	}
	return a.services.History.Get(a.ctx, id)
}

// GetSettings returns the current user settings.
func (a *App) GetSettings() (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	return a.settings.Current(), nil
}

// GetSettingsOptions lists the selectable settings values.
func (a *App) GetSettingsOptions() map[string][]string {
	return map[string][]string{
		"contentModes":    domain.ContentModeOptions,
		"feedbackFormats": domain.FeedbackFormatOptions,
	}
}

// UpdateSettings replaces the user settings. A running session picks the
// new values up on its next tick.
func (a *App) UpdateSettings(next domain.Settings) (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	saved, err := a.settings.Update(next)
	if err != nil {
		a.SessionError(domain.ErrorCodeSettings, err.Error())
		return domain.Settings{}, err
	}
	return saved, nil
}

// ToggleFeedbackFormat flips one feedback format, keeping at least one.
func (a *App) ToggleFeedbackFormat(format string) (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	return a.UpdateSettings(a.settings.Current().ToggleFeedbackFormat(format))
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	source := "push"
	if a.cfg.Vitals.ReplayDir != "" {
		source = "replay"
	}
	return map[string]string{
		"apiBaseUrl":   a.cfg.API.BaseURL,
		"tickInterval": a.cfg.Session.TickInterval.String(),
		"historyPath":  a.cfg.History.Path,
		"settingsPath": a.cfg.Settings.Path,
		"vitalsSource": source,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) send(name string, data interface{}) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, data)
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	a.send(eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// FeedbackChanged emits the live insight card contents.
func (a *App) FeedbackChanged(feedback domain.LiveFeedback) {
	a.send(eventFeedback, map[string]string{
		"kind":       string(feedback.Kind),
		"insight":    feedback.Insight,
		"expression": feedback.Expression,
	})
}

// VitalsUpdated emits each reading for the pulse and breath charts.
func (a *App) VitalsUpdated(pulse int, breath int, timestamp float64) {
	a.send(eventVitals, map[string]interface{}{
		"pulse":  pulse,
		"breath": breath,
		"time":   timestamp,
	})
}

// SummarySaved emits a newly saved history entry.
func (a *App) SummarySaved(summary domain.SessionSummary) {
	a.send(eventSummary, summary)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.send(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonRecordingStarted:
		return "Monitoring started"
	case domain.SessionReasonSummarizing:
		return "Session stopped. Generating summary..."
	case domain.SessionReasonSummarySaved:
		return "Summary saved to History"
	case domain.SessionReasonNoData:
		return "Session stopped. No data collected."
	case domain.SessionReasonSummaryFailed:
		return "Summary failed"
	case domain.SessionReasonHistoryFailed:
		return "Summary could not be saved"
	case domain.SessionReasonDiscarded:
		return "Session discarded"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeCapture:
		return "Vitals capture issue"
	case domain.ErrorCodeAnalysis:
		return "Analysis error"
	case domain.ErrorCodeConnection:
		return "Connection Error"
	case domain.ErrorCodeSpeech:
		return "Speech generation failed"
	case domain.ErrorCodePlayback:
		return "Audio playback failed"
	case domain.ErrorCodeSummary:
		return "Summary Error"
	case domain.ErrorCodeHistory:
		return "History write failed"
	case domain.ErrorCodeSettings:
		return "Settings update failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
