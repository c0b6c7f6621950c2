package vitals

import (
	"context"
	"errors"
	"sync"

	"introspect/internal/domain"
)

var ErrNotRunning = errors.New("vitals feed is not running")

// Feed is a push based vitals source. Producers call Publish; the session
// loop only ever sees the most recent reading.
type Feed struct {
	mu       sync.Mutex
	running  bool
	readings chan domain.Reading
}

func NewFeed() *Feed {
	return &Feed{readings: make(chan domain.Reading, 1)}
}

func (f *Feed) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.drainLocked()
	return nil
}

func (f *Feed) Readings() <-chan domain.Reading {
	return f.readings
}

func (f *Feed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.drainLocked()
	return nil
}

// Publish replaces any reading the consumer has not picked up yet.
func (f *Feed) Publish(reading domain.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return ErrNotRunning
	}
	f.drainLocked()
	f.readings <- reading
	return nil
}

func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *Feed) drainLocked() {
	select {
	case <-f.readings:
	default:
	}
}
