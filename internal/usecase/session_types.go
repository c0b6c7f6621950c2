package usecase

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"introspect/internal/domain"
)

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func newTimeTicker(interval time.Duration) ticker {
	return timeTicker{t: time.NewTicker(interval)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// activeSession is the per-session state. Everything except insights, stop
// and done is owned by the session loop goroutine.
type activeSession struct {
	id      string
	started time.Time
	cancel  context.CancelFunc

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	insights atomic.Int32

	// records is handed over to Stop once done is closed.
	records []domain.AnalysisRecord
}

func newActiveSession(id string, started time.Time, cancel context.CancelFunc) *activeSession {
	return &activeSession{
		id:      id,
		started: started,
		cancel:  cancel,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *activeSession) requestStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// loopState is the single-writer state of one session.
type loopState struct {
	records    []domain.AnalysisRecord
	latest     *domain.Reading
	frame      image.Image
	lastSpoken string
	inFlight   bool
	stopping   bool
}

// run is the session actor: readings, ticks and tick results are all
// applied here, one at a time.
func (c *SessionController) run(ctx context.Context, active *activeSession, t ticker) {
	defer close(active.done)
	defer t.Stop()

	st := &loopState{}
	defer func() { active.records = st.records }()

	ticks := t.C()
	stop := active.stop
	readings := c.deps.Source.Readings()
	outcomes := make(chan tickOutcome, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case <-stop:
			st.stopping = true
			t.Stop()
			stop, ticks, readings = nil, nil, nil
			if !st.inFlight {
				return
			}

		case reading, ok := <-readings:
			if !ok {
				readings = nil
				continue
			}
			st.latest = &reading
			// Vitals can arrive more often than frames; keep the last frame seen.
			if reading.Frame != nil {
				st.frame = reading.Frame
			}
			c.deps.Events.VitalsUpdated(reading.PulseRate, reading.BreathRate, reading.Timestamp)

		case <-ticks:
			c.tick(ctx, active, st, outcomes)

		case outcome := <-outcomes:
			st.inFlight = false
			c.applyOutcome(ctx, active, st, outcome, outcomes)
			if st.stopping && !st.inFlight {
				return
			}
		}
	}
}
