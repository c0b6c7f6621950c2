package usecase

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"introspect/internal/domain"
	"introspect/internal/ports"
)

const noInsightsText = "No insights available."

type outcomeKind int

const (
	outcomeAnalyzed outcomeKind = iota
	outcomeSpoken
)

type tickOutcome struct {
	kind outcomeKind

	sample   domain.Sample
	response ports.AnalyzeResponse

	// spoken is the text that was handed to the player.
	spoken string
	err    error
}

// tick builds a sample from the latest vitals and the latest frame and starts
// the analyze call.
// A tick is dropped while the previous one is still in flight.
func (c *SessionController) tick(ctx context.Context, active *activeSession, st *loopState, outcomes chan<- tickOutcome) {
	if st.inFlight {
		c.logger.Debug().Str("session_id", active.id).Msg("tick_dropped_in_flight")
		return
	}
	if st.latest == nil || st.frame == nil {
		return
	}

	image, err := c.deps.Encoder.Encode(st.frame)
	if err != nil {
		c.logger.Debug().Err(err).Str("session_id", active.id).Msg("tick_skipped_no_image")
		return
	}

	sample := domain.Sample{
		PulseRate:  st.latest.PulseRate,
		BreathRate: st.latest.BreathRate,
		Timestamp:  st.latest.Timestamp,
		Image:      image,
	}
	contentMode := c.deps.Settings.Current().RequestContentMode()

	st.inFlight = true
	go func() {
		resp, err := c.deps.Service.Analyze(ctx, []domain.Sample{sample}, contentMode)
		outcomes <- tickOutcome{kind: outcomeAnalyzed, sample: sample, response: resp, err: err}
	}()
}

func (c *SessionController) applyOutcome(ctx context.Context, active *activeSession, st *loopState, outcome tickOutcome, outcomes chan<- tickOutcome) {
	switch outcome.kind {
	case outcomeSpoken:
		if outcome.err != nil {
			return
		}
		if outcome.spoken != "" {
			st.lastSpoken = outcome.spoken
		}
	case outcomeAnalyzed:
		c.applyAnalysis(ctx, active, st, outcome, outcomes)
	}
}

func (c *SessionController) applyAnalysis(ctx context.Context, active *activeSession, st *loopState, outcome tickOutcome, outcomes chan<- tickOutcome) {
	if outcome.err != nil {
		c.logger.Warn().Err(outcome.err).Str("session_id", active.id).Msg("analyze_failed")
		c.deps.Events.SessionError(domain.ErrorCodeConnection, outcome.err.Error())
		c.setFeedback(domain.LiveFeedback{Kind: domain.FeedbackConnectionError, Insight: connectionText, Expression: errorText})
		return
	}
	if len(outcome.response.Results) == 0 {
		return
	}

	result := outcome.response.Results[0]
	heartRate := outcome.sample.PulseRate
	breathRate := outcome.sample.BreathRate
	st.records = append(st.records, domain.AnalysisRecord{
		Analysis:   result.Analysis,
		Expression: result.Expression,
		Timestamp:  result.Timestamp,
		Error:      result.Error,
		Metrics:    &domain.SampledMetrics{HeartRate: &heartRate, BreathRate: &breathRate},
	})
	active.insights.Store(int32(len(st.records)))

	c.logger.Debug().
		Str("session_id", active.id).
		Int("insights", len(st.records)).
		Int("pulse", heartRate).
		Int("breath", breathRate).
		Msg("tick")

	if result.Error != nil {
		c.deps.Events.SessionError(domain.ErrorCodeAnalysis, *result.Error)
		c.setFeedback(domain.LiveFeedback{
			Kind:       domain.FeedbackAnalysisError,
			Insight:    "Analysis Error: " + *result.Error,
			Expression: errorText,
		})
		return
	}

	text := deref(result.Analysis)
	feedback := domain.LiveFeedback{Kind: domain.FeedbackInsight, Insight: text, Expression: neutralText}
	if feedback.Insight == "" {
		// Display only; text stays empty so the placeholder is never spoken.
		feedback.Insight = noInsightsText
	}
	if expression := deref(result.Expression); expression != "" {
		feedback.Expression = capitalize(expression)
	}
	c.setFeedback(feedback)

	settings := c.deps.Settings.Current()
	if st.stopping || !shouldSpeak(settings, text, st.lastSpoken) {
		return
	}

	st.inFlight = true
	voiceID := settings.VoiceID
	if voiceID == "" {
		voiceID = domain.DefaultVoiceID
	}
	go func() {
		outcomes <- c.speak(ctx, active.id, text, voiceID)
	}()
}

func (c *SessionController) speak(ctx context.Context, sessionID string, text string, voiceID string) tickOutcome {
	audio, err := c.deps.Service.Speak(ctx, text, voiceID)
	if err != nil {
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("speech_failed")
		c.deps.Events.SessionError(domain.ErrorCodeSpeech, err.Error())
		return tickOutcome{kind: outcomeSpoken, err: err}
	}
	if audio == "" {
		return tickOutcome{kind: outcomeSpoken}
	}
	if err := c.deps.Player.PlayBase64(ctx, audio); err != nil {
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("playback_failed")
		c.deps.Events.SessionError(domain.ErrorCodePlayback, err.Error())
	}
	return tickOutcome{kind: outcomeSpoken, spoken: text}
}

// shouldSpeak suppresses only an immediate repeat of the last spoken text.
func shouldSpeak(settings domain.Settings, text string, lastSpoken string) bool {
	return settings.HasFeedbackFormat(domain.FeedbackFormatAudio) && text != "" && text != lastSpoken
}

func capitalize(s string) string {
	return cases.Title(language.Und).String(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
