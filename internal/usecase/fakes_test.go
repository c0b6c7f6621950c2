package usecase

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"introspect/internal/domain"
	"introspect/internal/ports"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type harness struct {
	controller *SessionController
	source     *fakeSource
	service    *fakeService
	player     *fakePlayer
	history    *fakeHistory
	settings   *fakeSettings
	events     *fakeEventSink
	ticker     *manualTicker
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		source:   newFakeSource(),
		service:  &fakeService{},
		player:   &fakePlayer{},
		history:  &fakeHistory{},
		settings: &fakeSettings{settings: domain.DefaultSettings()},
		events:   &fakeEventSink{},
		ticker:   newManualTicker(),
	}
	h.settings.settings.FeedbackFormats = []string{domain.FeedbackFormatText}

	ids := 0
	h.controller = NewSessionController(Deps{
		Source:   h.source,
		Encoder:  fakeEncoder{},
		Service:  h.service,
		Player:   h.player,
		History:  h.history,
		Settings: h.settings,
		Events:   h.events,
		Logger:   zerolog.Nop(),
	}, Config{
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			ids++
			return []string{"session-1", "summary-1", "session-2", "summary-2"}[(ids-1)%4]
		},
	})
	h.controller.newTicker = func(time.Duration) ticker { return h.ticker }
	return h
}

// push hands a reading to the session loop and returns once it was received.
func (h *harness) push(t *testing.T, pulse int) {
	t.Helper()
	select {
	case h.source.readings <- domain.Reading{PulseRate: pulse, BreathRate: 12, Timestamp: float64(pulse), Frame: testFrame()}:
	case <-time.After(time.Second):
		t.Fatalf("session loop did not take reading")
	}
}

// tick fires the ticker until the loop accepts a tick that reaches the
// analysis service. Ticks fired while a previous one is in flight are dropped
// by the loop, so retrying never produces an extra call.
func (h *harness) tick(t *testing.T) {
	t.Helper()
	want := h.service.analyzeCalls() + 1
	require.Eventually(t, func() bool {
		if h.service.analyzeCalls() >= want {
			return true
		}
		select {
		case h.ticker.ch <- fixedNow:
		default:
		}
		return false
	}, 2*time.Second, time.Millisecond)
}

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func strPtr(s string) *string { return &s }

func intPtr(v int) *int { return &v }

type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

type fakeSource struct {
	mu        sync.Mutex
	readings  chan domain.Reading
	startErr  error
	stopErr   error
	starts    int
	stopCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{readings: make(chan domain.Reading)}
}

func (f *fakeSource) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeSource) Readings() <-chan domain.Reading { return f.readings }

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

type fakeEncoder struct{}

func (fakeEncoder) Encode(frame image.Image) (string, error) {
	if frame == nil {
		return "", errors.New("no frame")
	}
	return "aW1n", nil
}

type fakeService struct {
	mu sync.Mutex

	// analyze scripts the response of the n-th call, counted from zero.
	analyze func(n int, samples []domain.Sample) (ports.AnalyzeResponse, error)
	summary ports.SummaryResponse
	sumErr  error
	audio   string
	spkErr  error

	samples   []domain.Sample
	summaries [][]domain.AnalysisRecord
	spoken    []string
	voices    []string
}

func (f *fakeService) Analyze(_ context.Context, samples []domain.Sample, _ string) (ports.AnalyzeResponse, error) {
	f.mu.Lock()
	n := len(f.samples)
	f.samples = append(f.samples, samples...)
	script := f.analyze
	f.mu.Unlock()

	if script == nil {
		return analysisOf("ok", "neutral"), nil
	}
	return script(n, samples)
}

func (f *fakeService) Summarize(_ context.Context, records []domain.AnalysisRecord) (ports.SummaryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, append([]domain.AnalysisRecord(nil), records...))
	return f.summary, f.sumErr
}

func (f *fakeService) Speak(_ context.Context, text string, voiceID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	f.voices = append(f.voices, voiceID)
	if f.spkErr != nil {
		return "", f.spkErr
	}
	return f.audio, nil
}

func (f *fakeService) analyzeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.samples)
}

func (f *fakeService) snapshotSamples() []domain.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Sample(nil), f.samples...)
}

func (f *fakeService) snapshotSpoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeService) snapshotSummaries() [][]domain.AnalysisRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]domain.AnalysisRecord(nil), f.summaries...)
}

func analysisOf(text string, expression string) ports.AnalyzeResponse {
	return ports.AnalyzeResponse{Results: []ports.AnalyzeResult{{
		Analysis:   strPtr(text),
		Expression: strPtr(expression),
		Timestamp:  1,
	}}}
}

type fakePlayer struct {
	mu    sync.Mutex
	clips []string
	err   error
}

func (f *fakePlayer) PlayBase64(_ context.Context, audio string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clips = append(f.clips, audio)
	return f.err
}

func (f *fakePlayer) Stop() error { return nil }

func (f *fakePlayer) snapshotClips() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.clips...)
}

type fakeHistory struct {
	mu        sync.Mutex
	summaries []domain.SessionSummary
	err       error
}

func (f *fakeHistory) Append(_ context.Context, summary domain.SessionSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeHistory) List(context.Context) ([]domain.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SessionSummary(nil), f.summaries...), nil
}

func (f *fakeHistory) Get(_ context.Context, id string) (domain.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, summary := range f.summaries {
		if summary.ID == id {
			return summary, nil
		}
	}
	return domain.SessionSummary{}, errors.New("not found")
}

type fakeSettings struct {
	mu       sync.Mutex
	settings domain.Settings
}

func (f *fakeSettings) Current() domain.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

type fakeEventSink struct {
	mu sync.Mutex

	states   []stateEvent
	feedback []domain.LiveFeedback
	vitals   []int
	saved    []domain.SessionSummary
	errors   []errEvent
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) FeedbackChanged(feedback domain.LiveFeedback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, feedback)
}

func (f *fakeEventSink) VitalsUpdated(pulse int, _ int, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vitals = append(f.vitals, pulse)
}

func (f *fakeEventSink) SummarySaved(summary domain.SessionSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, summary)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stateEvent(nil), f.states...)
}

func (f *fakeEventSink) snapshotFeedback() []domain.LiveFeedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.LiveFeedback(nil), f.feedback...)
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]errEvent(nil), f.errors...)
}
