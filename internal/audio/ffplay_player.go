package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var ErrEmptyAudio = errors.New("empty audio clip")

const (
	defaultStartupWait = 250 * time.Millisecond
	stopGrace          = 1200 * time.Millisecond
)

// FFPlayPlayer plays base64 encoded clips by piping them to ffplay. Starting a
// clip replaces the one still playing.
type FFPlayPlayer struct {
	command     string
	startupWait time.Duration

	mu      sync.Mutex
	current *playback
}

func NewFFPlayPlayer(command string) *FFPlayPlayer {
	if command == "" {
		command = "ffplay"
	}
	return &FFPlayPlayer{command: command, startupWait: defaultStartupWait}
}

// PlayBase64 starts playback and returns once the player is running. It does
// not wait for the clip to finish.
func (p *FFPlayPlayer) PlayBase64(ctx context.Context, audio string) error {
	clip, err := decodeClip(audio)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.Stop(); err != nil {
		return fmt.Errorf("failed to stop previous clip: %w", err)
	}

	args := []string{
		"-nodisp",
		"-autoexit",
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
	}
	cmd := exec.Command(p.command, args...)
	cmd.Stdin = bytes.NewReader(clip)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = stopGrace

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffplay: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		if err != nil {
			return fmt.Errorf("ffplay exited before playback started: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		// Clip was shorter than the startup window.
		return nil
	case <-time.After(p.startupWait):
	}

	p.mu.Lock()
	p.current = &playback{process: cmd.Process, waitErr: waitErr, stderr: &stderr}
	p.mu.Unlock()
	return nil
}

// Stop interrupts the clip that is currently playing, if any.
func (p *FFPlayPlayer) Stop() error {
	p.mu.Lock()
	current := p.current
	p.current = nil
	p.mu.Unlock()

	if current == nil {
		return nil
	}
	return current.stop()
}

type playback struct {
	process *os.Process
	waitErr <-chan error
	stderr  *bytes.Buffer

	stopOnce sync.Once
	stopErr  error
}

func (p *playback) stop() error {
	p.stopOnce.Do(func() {
		select {
		case err, ok := <-p.waitErr:
			// Already finished on its own.
			if ok {
				p.stopErr = normalizeStopErr(err)
			}
			return
		default:
		}

		_ = p.process.Signal(os.Interrupt)
		select {
		case err, ok := <-p.waitErr:
			if ok {
				p.stopErr = normalizeStopErr(err)
			}
		case <-time.After(stopGrace):
			_ = p.process.Kill()
			err, ok := <-p.waitErr
			if ok {
				p.stopErr = normalizeStopErr(err)
			}
		}
	})
	return p.stopErr
}

// NopPlayer drops every clip. It backs text-only setups.
type NopPlayer struct{}

func (NopPlayer) PlayBase64(_ context.Context, audio string) error {
	_, err := decodeClip(audio)
	return err
}

func (NopPlayer) Stop() error { return nil }

// decodeClip accepts raw base64 as well as data URIs.
func decodeClip(audio string) ([]byte, error) {
	payload := strings.TrimSpace(audio)
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	payload = strings.Map(keepBase64, payload)
	if payload == "" {
		return nil, ErrEmptyAudio
	}

	clip, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		clip, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid audio payload: %w", err)
	}
	if len(clip) == 0 {
		return nil, ErrEmptyAudio
	}
	return clip, nil
}

// keepBase64 drops anything outside the standard alphabet, such as line
// breaks some TTS backends insert.
func keepBase64(r rune) rune {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/', r == '=':
		return r
	}
	return -1
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
