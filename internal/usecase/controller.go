package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"introspect/internal/domain"
	"introspect/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active monitoring session")
	ErrSessionActive   = errors.New("monitoring session already active")
)

const (
	DefaultTickInterval = 3 * time.Second

	waitingText    = "Waiting for live analysis..."
	neutralText    = "Neutral"
	errorText      = "Error"
	connectionText = "Connection Error..."
)

// Config controls session sampling behavior.
type Config struct {
	TickInterval time.Duration
	// Now and NewID are overridable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

// Deps are the collaborators a SessionController drives.
type Deps struct {
	Source   ports.VitalsSource
	Encoder  ports.ImageEncoder
	Service  ports.AnalysisService
	Player   ports.AudioPlayer
	History  ports.HistoryStore
	Settings ports.SettingsProvider
	Events   ports.EventSink
	Logger   zerolog.Logger
}

// SessionController owns the idle -> recording -> summarizing lifecycle.
type SessionController struct {
	deps      Deps
	finalizer summaryFinalizer
	cfg       Config
	logger    zerolog.Logger

	newTicker func(time.Duration) ticker

	mu       sync.Mutex
	state    domain.SessionState
	current  *activeSession
	feedback domain.LiveFeedback
}

func NewSessionController(deps Deps, cfg Config) *SessionController {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	logger := deps.Logger.With().Str("component", "session").Logger()
	return &SessionController{
		deps:      deps,
		finalizer: newSummaryFinalizer(deps.Service, deps.History, deps.Events, logger, cfg.Now, cfg.NewID),
		cfg:       cfg,
		logger:    logger,
		newTicker: newTimeTicker,
		state:     domain.SessionStateIdle,
		feedback:  domain.LiveFeedback{Kind: domain.FeedbackWaiting, Insight: waitingText, Expression: neutralText},
	}
}

// Start begins a new monitoring session.
func (c *SessionController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.SessionStateIdle {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.state = domain.SessionStateRecording
	c.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := c.deps.Source.Start(sessionCtx); err != nil {
		cancel()
		c.mu.Lock()
		c.state = domain.SessionStateIdle
		c.mu.Unlock()
		c.deps.Events.SessionError(domain.ErrorCodeCapture, err.Error())
		return fmt.Errorf("start vitals capture: %w", err)
	}

	active := newActiveSession(c.cfg.NewID(), c.cfg.Now(), cancel)
	c.mu.Lock()
	c.current = active
	c.mu.Unlock()

	c.setFeedback(domain.LiveFeedback{Kind: domain.FeedbackWaiting, Insight: waitingText, Expression: neutralText})

	go c.run(sessionCtx, active, c.newTicker(c.cfg.TickInterval))

	c.logger.Info().Str("session_id", active.id).Dur("interval", c.cfg.TickInterval).Msg("session_start")
	c.deps.Events.SessionStateChanged(domain.SessionStateRecording, domain.SessionReasonRecordingStarted)
	return nil
}

// Stop ends the active session, waits for the in-flight tick and produces
// the session summary. Summary failures are reported through live feedback
// and StopResult.Reason, not as an error.
func (c *SessionController) Stop(ctx context.Context) (domain.StopResult, error) {
	c.mu.Lock()
	active := c.current
	if active == nil || c.state != domain.SessionStateRecording {
		c.mu.Unlock()
		return domain.StopResult{}, ErrNoActiveSession
	}
	c.state = domain.SessionStateSummarizing
	c.mu.Unlock()

	c.deps.Events.SessionStateChanged(domain.SessionStateSummarizing, domain.SessionReasonSummarizing)

	records := c.halt(ctx, active)
	c.setFeedback(domain.LiveFeedback{
		Kind:       domain.FeedbackSummarizing,
		Insight:    "Session stopped. Generating summary...",
		Expression: neutralText,
	})

	result, feedback := c.finalizer.Finalize(ctx, active.id, records)
	c.setFeedback(feedback)

	c.logger.Info().
		Str("session_id", active.id).
		Int("count", len(records)).
		Str("reason", string(result.Reason)).
		Msg("session_end")

	c.finishSession(active, result.Reason)
	return result, nil
}

// Abort discards the active session without summarizing it.
func (c *SessionController) Abort(ctx context.Context) error {
	c.mu.Lock()
	active := c.current
	if active == nil || c.state != domain.SessionStateRecording {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	c.state = domain.SessionStateSummarizing
	c.mu.Unlock()

	active.cancel()
	records := c.halt(ctx, active)
	c.setFeedback(domain.LiveFeedback{Kind: domain.FeedbackWaiting, Insight: waitingText, Expression: neutralText})

	c.logger.Info().Str("session_id", active.id).Int("discarded", len(records)).Msg("session_discarded")
	c.finishSession(active, domain.SessionReasonDiscarded)
	return nil
}

// Status returns the current backend status.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.Status{
		State:    c.state,
		Active:   c.state != domain.SessionStateIdle,
		Feedback: c.feedback,
	}
	if c.current != nil {
		status.SessionID = c.current.id
		status.Insights = int(c.current.insights.Load())
	}
	return status
}

// halt disarms the ticker, stops capture and returns the session buffer once
// the in-flight tick has been applied.
func (c *SessionController) halt(ctx context.Context, active *activeSession) []domain.AnalysisRecord {
	active.requestStop()
	if err := c.deps.Source.Stop(); err != nil {
		c.logger.Warn().Err(err).Str("session_id", active.id).Msg("capture_stop_failed")
		c.deps.Events.SessionError(domain.ErrorCodeCapture, "failed to stop vitals capture cleanly")
	}

	select {
	case <-active.done:
	case <-ctx.Done():
		active.cancel()
		<-active.done
	}
	return active.records
}

func (c *SessionController) finishSession(active *activeSession, reason domain.SessionStateReason) {
	active.cancel()

	c.mu.Lock()
	if c.current == active {
		c.current = nil
	}
	c.state = domain.SessionStateIdle
	c.mu.Unlock()

	c.deps.Events.SessionStateChanged(domain.SessionStateIdle, reason)
}

func (c *SessionController) setFeedback(feedback domain.LiveFeedback) {
	c.mu.Lock()
	c.feedback = feedback
	c.mu.Unlock()
	c.deps.Events.FeedbackChanged(feedback)
}
