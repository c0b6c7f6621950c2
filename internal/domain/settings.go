package domain

import (
	"fmt"
	"strings"
)

const (
	ContentModeInsight      = "Insight Provided by Gemini"
	ContentModeQuantitative = "Quantitative"

	FeedbackFormatAudio = "Audio"
	FeedbackFormatText  = "Text"

	DefaultVoiceID = "pNInz6obpgDQGcFmaJgB"
)

// ContentModeOptions lists the selectable content modes (choose one).
var ContentModeOptions = []string{ContentModeInsight, ContentModeQuantitative}

// FeedbackFormatOptions lists the selectable feedback formats (choose one or both).
var FeedbackFormatOptions = []string{FeedbackFormatAudio, FeedbackFormatText}

// Settings are the user preferences that influence a running session.
type Settings struct {
	ContentMode        string   `yaml:"contentMode,omitempty" json:"contentMode"`
	FeedbackFormats    []string `yaml:"feedbackFormats,omitempty" json:"feedbackFormats"`
	VoiceID            string   `yaml:"voiceId,omitempty" json:"voiceId"`
	PulseRateEnabled   *bool    `yaml:"pulseRateEnabled,omitempty" json:"pulseRateEnabled"`
	BreathRateEnabled  *bool    `yaml:"breathRateEnabled,omitempty" json:"breathRateEnabled"`
	ExpressionsEnabled *bool    `yaml:"expressionsEnabled,omitempty" json:"expressionsEnabled"`
}

// HasFeedbackFormat reports whether the given format is selected.
func (s Settings) HasFeedbackFormat(format string) bool {
	for _, f := range s.FeedbackFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// RequestContentMode is the content mode as sent to the analysis service.
func (s Settings) RequestContentMode() string {
	return strings.ToLower(s.ContentMode)
}

// DefaultSettings mirrors a fresh install: Gemini insights, spoken and
// written feedback, every metric shown.
func DefaultSettings() Settings {
	pulse, breath, expressions := true, true, true
	return Settings{
		ContentMode:        ContentModeInsight,
		FeedbackFormats:    []string{FeedbackFormatAudio, FeedbackFormatText},
		VoiceID:            DefaultVoiceID,
		PulseRateEnabled:   &pulse,
		BreathRateEnabled:  &breath,
		ExpressionsEnabled: &expressions,
	}
}

// Validate checks that one content mode and one or two feedback formats
// are selected from the known options.
func (s Settings) Validate() error {
	if !containsFold(ContentModeOptions, s.ContentMode) {
		return fmt.Errorf("unknown content mode %q", s.ContentMode)
	}
	if len(s.FeedbackFormats) == 0 || len(s.FeedbackFormats) > len(FeedbackFormatOptions) {
		return fmt.Errorf("select between 1 and %d feedback formats", len(FeedbackFormatOptions))
	}
	seen := make(map[string]struct{}, len(s.FeedbackFormats))
	for _, format := range s.FeedbackFormats {
		if !containsFold(FeedbackFormatOptions, format) {
			return fmt.Errorf("unknown feedback format %q", format)
		}
		key := strings.ToLower(format)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate feedback format %q", format)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ToggleFeedbackFormat selects or deselects a format. The last selected
// format cannot be removed.
func (s Settings) ToggleFeedbackFormat(format string) Settings {
	out := s
	out.FeedbackFormats = nil
	removed := false
	for _, f := range s.FeedbackFormats {
		if strings.EqualFold(f, format) && len(s.FeedbackFormats) > 1 {
			removed = true
			continue
		}
		out.FeedbackFormats = append(out.FeedbackFormats, f)
	}
	if !removed && !s.HasFeedbackFormat(format) && len(s.FeedbackFormats) < len(FeedbackFormatOptions) {
		out.FeedbackFormats = append(out.FeedbackFormats, format)
	}
	return out
}

// Enabled resolves an optional toggle, treating unset as on.
func Enabled(toggle *bool) bool {
	return toggle == nil || *toggle
}

func containsFold(options []string, value string) bool {
	for _, option := range options {
		if strings.EqualFold(option, value) {
			return true
		}
	}
	return false
}
