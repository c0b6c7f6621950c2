package domain

import (
	"image"
	"time"
)

// SessionState models the monitoring session lifecycle.
type SessionState string

const (
	SessionStateIdle        SessionState = "idle"
	SessionStateRecording   SessionState = "recording"
	SessionStateSummarizing SessionState = "summarizing"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady            SessionStateReason = "ready"
	SessionReasonRecordingStarted SessionStateReason = "recording_started"
	SessionReasonSummarizing      SessionStateReason = "summarizing"
	SessionReasonSummarySaved     SessionStateReason = "summary_saved"
	SessionReasonNoData           SessionStateReason = "no_data"
	SessionReasonSummaryFailed    SessionStateReason = "summary_failed"
	SessionReasonHistoryFailed    SessionStateReason = "history_failed"
	SessionReasonDiscarded        SessionStateReason = "recording_discarded"
)

// ErrorCode identifies non-fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup    ErrorCode = "startup"
	ErrorCodeCapture    ErrorCode = "capture"
	ErrorCodeAnalysis   ErrorCode = "analysis"
	ErrorCodeSpeech     ErrorCode = "speech"
	ErrorCodePlayback   ErrorCode = "playback"
	ErrorCodeSummary    ErrorCode = "summary"
	ErrorCodeHistory    ErrorCode = "history"
	ErrorCodeSettings   ErrorCode = "settings"
	ErrorCodeConnection ErrorCode = "connection"
)

// FeedbackKind classifies what the live feedback currently shows.
type FeedbackKind string

const (
	FeedbackWaiting         FeedbackKind = "waiting"
	FeedbackInsight         FeedbackKind = "insight"
	FeedbackAnalysisError   FeedbackKind = "analysis_error"
	FeedbackConnectionError FeedbackKind = "connection_error"
	FeedbackSummarizing     FeedbackKind = "summarizing"
	FeedbackSummarySaved    FeedbackKind = "summary_saved"
	FeedbackSummaryError    FeedbackKind = "summary_error"
	FeedbackNoData          FeedbackKind = "no_data"
)

// LiveFeedback is what the monitoring surface displays for the current session.
type LiveFeedback struct {
	Kind       FeedbackKind `json:"kind"`
	Insight    string       `json:"insight"`
	Expression string       `json:"expression"`
}

// Reading is the latest output of the vitals capture source.
type Reading struct {
	PulseRate  int
	BreathRate int
	Timestamp  float64
	Frame      image.Image
}

// Sample is one snapshot sent for analysis.
type Sample struct {
	PulseRate  int     `json:"Pulse"`
	BreathRate int     `json:"Breath"`
	Timestamp  float64 `json:"Time"`
	Image      string  `json:"Image,omitempty"`
}

// SampledMetrics are the vitals observed when a record was produced.
type SampledMetrics struct {
	HeartRate  *int `json:"heartRate,omitempty"`
	BreathRate *int `json:"breathRate,omitempty"`
}

// AnalysisRecord is one per-tick result accumulated during a session.
type AnalysisRecord struct {
	Analysis   *string         `json:"analysis,omitempty"`
	Expression *string         `json:"expression,omitempty"`
	Timestamp  float64         `json:"timestamp"`
	Error      *string         `json:"error,omitempty"`
	Metrics    *SampledMetrics `json:"metrics,omitempty"`
}

// SessionSummary is the persisted end-of-session record.
type SessionSummary struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"sessionId"`
	Date              time.Time `json:"date"`
	DurationMinutes   int       `json:"durationMinutes"`
	Headline          string    `json:"headline"`
	FullText          string    `json:"fullText"`
	AverageHeartRate  int       `json:"averageHeartRate"`
	TotalInsights     int       `json:"totalInsights"`
	MostCommonEmotion string    `json:"mostCommonEmotion,omitempty"`
}

// StopResult is returned once a session has been stopped and summarized.
type StopResult struct {
	SessionID string             `json:"sessionId"`
	Insights  int                `json:"insights"`
	Reason    SessionStateReason `json:"reason"`
	Summary   *SessionSummary    `json:"summary,omitempty"`
}

// Status summarizes the current runtime status.
type Status struct {
	State     SessionState `json:"state"`
	Active    bool         `json:"active"`
	SessionID string       `json:"sessionId,omitempty"`
	Insights  int          `json:"insights"`
	Feedback  LiveFeedback `json:"feedback"`
	Message   string       `json:"message,omitempty"`
}
