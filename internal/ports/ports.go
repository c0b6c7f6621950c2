package ports

import (
	"context"
	"image"

	"introspect/internal/domain"
)

// VitalsSource is the camera-based vitals capture source.
type VitalsSource interface {
	Start(ctx context.Context) error
	// Readings delivers the most recent readings; slow consumers miss
	// intermediate values instead of building a backlog.
	Readings() <-chan domain.Reading
	Stop() error
}

// ImageEncoder turns a captured frame into a transmittable payload.
type ImageEncoder interface {
	Encode(frame image.Image) (string, error)
}

// AnalyzeResult is one result of the analyze endpoint.
type AnalyzeResult struct {
	Analysis   *string
	Expression *string
	Timestamp  float64
	Error      *string
}

// AnalyzeResponse is the decoded analyze reply.
type AnalyzeResponse struct {
	Results        []AnalyzeResult
	TotalProcessed *int
}

// SessionStats are the aggregate figures the summary endpoint reports.
type SessionStats struct {
	TotalInsights       int
	Duration            string
	MostCommonEmotion   string
	EmotionDistribution map[string]int
}

// SummaryResponse is the decoded summary reply.
type SummaryResponse struct {
	Summary      string
	SessionStats *SessionStats
}

// AnalysisService is the remote analyze/summary/speech service.
type AnalysisService interface {
	Analyze(ctx context.Context, samples []domain.Sample, contentMode string) (AnalyzeResponse, error)
	Summarize(ctx context.Context, records []domain.AnalysisRecord) (SummaryResponse, error)
	// Speak returns base64 audio, or an empty string when the service produced none.
	Speak(ctx context.Context, text string, voiceID string) (string, error)
}

// AudioPlayer plays base64 encoded speech audio.
type AudioPlayer interface {
	PlayBase64(ctx context.Context, audio string) error
	Stop() error
}

// HistoryStore persists session summaries.
type HistoryStore interface {
	Append(ctx context.Context, summary domain.SessionSummary) error
	List(ctx context.Context) ([]domain.SessionSummary, error)
	Get(ctx context.Context, id string) (domain.SessionSummary, error)
}

// SettingsProvider exposes the current user settings.
type SettingsProvider interface {
	Current() domain.Settings
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	FeedbackChanged(feedback domain.LiveFeedback)
	VitalsUpdated(pulseRate int, breathRate int, timestamp float64)
	SummarySaved(summary domain.SessionSummary)
	SessionError(code domain.ErrorCode, detail string)
}
