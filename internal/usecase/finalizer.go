package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"introspect/internal/domain"
	"introspect/internal/ports"
)

const summaryErrorLimit = 50

type summaryFinalizer struct {
	service ports.AnalysisService
	history ports.HistoryStore
	events  ports.EventSink
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string
}

func newSummaryFinalizer(service ports.AnalysisService, history ports.HistoryStore, events ports.EventSink, logger zerolog.Logger, now func() time.Time, newID func() string) summaryFinalizer {
	return summaryFinalizer{service: service, history: history, events: events, logger: logger, now: now, newID: newID}
}

// Finalize runs the summary pipeline for one stopped session. It never
// fails; the outcome is carried by the reason and the returned feedback.
func (f summaryFinalizer) Finalize(ctx context.Context, sessionID string, records []domain.AnalysisRecord) (domain.StopResult, domain.LiveFeedback) {
	result := domain.StopResult{SessionID: sessionID, Insights: len(records)}

	if len(records) == 0 {
		result.Reason = domain.SessionReasonNoData
		return result, domain.LiveFeedback{
			Kind:       domain.FeedbackNoData,
			Insight:    "Session stopped. No data collected.",
			Expression: neutralText,
		}
	}

	resp, err := f.service.Summarize(ctx, records)
	if err != nil {
		f.logger.Warn().Err(err).Str("session_id", sessionID).Msg("summary_failed")
		f.events.SessionError(domain.ErrorCodeSummary, err.Error())
		result.Reason = domain.SessionReasonSummaryFailed
		return result, domain.LiveFeedback{
			Kind:       domain.FeedbackSummaryError,
			Insight:    "Summary Error: " + truncateRunes(err.Error(), summaryErrorLimit) + ".",
			Expression: errorText,
		}
	}

	summary := BuildSummary(f.newID(), sessionID, f.now(), records, resp)
	result.Summary = &summary

	if err := f.history.Append(ctx, summary); err != nil {
		f.logger.Error().Err(err).Str("session_id", sessionID).Msg("history_append_failed")
		f.events.SessionError(domain.ErrorCodeHistory, "summary generated but could not be saved to history")
		result.Reason = domain.SessionReasonHistoryFailed
		return result, domain.LiveFeedback{
			Kind:       domain.FeedbackSummaryError,
			Insight:    "Summary Error: could not save to history.",
			Expression: errorText,
		}
	}

	f.logger.Info().
		Str("session_id", sessionID).
		Str("summary_id", summary.ID).
		Int("average_heart_rate", summary.AverageHeartRate).
		Int("duration_minutes", summary.DurationMinutes).
		Msg("summary_saved")
	f.events.SummarySaved(summary)

	result.Reason = domain.SessionReasonSummarySaved
	return result, domain.LiveFeedback{
		Kind:       domain.FeedbackSummarySaved,
		Insight:    "Summary saved to History: " + summary.Headline,
		Expression: neutralText,
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
