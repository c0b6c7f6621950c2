package vitals

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"introspect/internal/domain"
)

const (
	ReadingsFile        = "readings.jsonl"
	DefaultReplayPeriod = time.Second
)

// replayLine is one line of a recorded readings.jsonl file. Frame is a path
// relative to the recording directory.
type replayLine struct {
	Pulse  int     `json:"pulse"`
	Breath int     `json:"breath"`
	Time   float64 `json:"time"`
	Frame  string  `json:"frame"`
}

// ReplayConfig describes a recorded session to play back.
type ReplayConfig struct {
	Dir    string
	Period time.Duration
	Loop   bool
}

// Replay plays back a recorded session directory as a live vitals source.
type Replay struct {
	cfg    ReplayConfig
	logger zerolog.Logger
	feed   *Feed

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReplay(cfg ReplayConfig, logger zerolog.Logger) *Replay {
	if cfg.Period <= 0 {
		cfg.Period = DefaultReplayPeriod
	}
	return &Replay{
		cfg:    cfg,
		logger: logger.With().Str("component", "replay").Logger(),
		feed:   NewFeed(),
	}
}

func (r *Replay) Start(ctx context.Context) error {
	readings, err := LoadRecording(r.cfg.Dir)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		return fmt.Errorf("recording %q has no readings", r.cfg.Dir)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return errors.New("replay already running")
	}

	if err := r.feed.Start(ctx); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.play(runCtx, readings, r.done)

	r.logger.Info().Str("dir", r.cfg.Dir).Int("readings", len(readings)).Msg("replay_start")
	return nil
}

func (r *Replay) Readings() <-chan domain.Reading {
	return r.feed.Readings()
}

func (r *Replay) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return r.feed.Stop()
}

func (r *Replay) play(ctx context.Context, readings []domain.Reading, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.cfg.Period)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if i == len(readings) {
			if !r.cfg.Loop {
				r.logger.Debug().Msg("replay_exhausted")
				return
			}
			i = 0
		}
		if err := r.feed.Publish(readings[i]); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// LoadRecording reads readings.jsonl and the frames it references.
func LoadRecording(dir string) ([]domain.Reading, error) {
	file, err := os.Open(filepath.Join(dir, ReadingsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer file.Close()

	var readings []domain.Reading
	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		var line replayLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		reading := domain.Reading{PulseRate: line.Pulse, BreathRate: line.Breath, Timestamp: line.Time}
		if line.Frame != "" {
			frame, err := loadFrame(filepath.Join(dir, line.Frame))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			reading.Frame = frame
		}
		readings = append(readings, reading)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return readings, nil
}

func loadFrame(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer file.Close()

	frame, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %q: %w", filepath.Base(path), err)
	}
	return frame, nil
}
