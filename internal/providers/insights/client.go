package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"introspect/internal/domain"
	"introspect/internal/ports"
)

const (
	DefaultBaseURL = "http://172.20.10.12:8787"

	endpointAnalyze = "analyze"
	endpointSummary = "summary"
	endpointTTS     = "tts"
)

// Config controls the analysis service connection.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.AnalysisService over HTTP. Every call is a single
// round trip without retry.
type Client struct {
	cfg    Config
	http   *tracedClient
	logger zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   newTracedClient(cfg.Timeout),
		logger: logger.With().Str("component", "insights").Logger(),
	}
}

// Analyze posts one batch of samples to /analyze.
func (c *Client) Analyze(ctx context.Context, samples []domain.Sample, contentMode string) (ports.AnalyzeResponse, error) {
	query := url.Values{}
	query.Set("contentMode", contentMode)

	body, err := c.post(ctx, endpointAnalyze, query, samples)
	if err != nil {
		return ports.AnalyzeResponse{}, err
	}

	var wire analyzeResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return ports.AnalyzeResponse{}, decodeError(endpointAnalyze, err)
	}
	return wire.validate()
}

// Summarize posts the accumulated records to /summary.
func (c *Client) Summarize(ctx context.Context, records []domain.AnalysisRecord) (ports.SummaryResponse, error) {
	if records == nil {
		records = []domain.AnalysisRecord{}
	}
	body, err := c.post(ctx, endpointSummary, nil, records)
	if err != nil {
		return ports.SummaryResponse{}, err
	}

	var wire summaryResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return ports.SummaryResponse{}, decodeError(endpointSummary, err)
	}
	return wire.validate()
}

// Speak requests speech for text as a single-element batch.
func (c *Client) Speak(ctx context.Context, text string, voiceID string) (string, error) {
	item := ttsRequestItem{Text: text}
	if voiceID != "" {
		item.Voice = &voiceID
	}
	body, err := c.post(ctx, endpointTTS, nil, []ttsRequestItem{item})
	if err != nil {
		return "", err
	}

	var wire ttsResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return "", decodeError(endpointTTS, err)
	}
	if wire.Results == nil {
		return "", decodeError(endpointTTS, errors.New("missing results"))
	}
	if len(*wire.Results) == 0 {
		return "", nil
	}
	first := (*wire.Results)[0]
	if first.Error != nil && *first.Error != "" {
		c.logger.Warn().Str("error", *first.Error).Msg("tts_result_error")
	}
	if first.Audio == nil {
		return "", nil
	}
	return *first.Audio, nil
}

func (c *Client) post(ctx context.Context, endpoint string, query url.Values, payload any) ([]byte, error) {
	target, err := c.endpointURL(endpoint, query)
	if err != nil {
		return nil, transportError(endpoint, err)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(encoded))
	if err != nil {
		return nil, transportError(endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(endpoint, err)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Int("request_bytes", len(encoded)).
		Int("response_bytes", len(resp.Body)).
		Bool("conn_reused", resp.Metrics.ConnReused).
		Dur("conn_wait", resp.Metrics.ConnWait).
		Dur("ttfb", resp.Metrics.TTFB).
		Dur("download", resp.Metrics.Download).
		Dur("total", resp.Metrics.Total).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(endpoint, resp.StatusCode, resp.Body)
	}
	return resp.Body, nil
}

func (c *Client) endpointURL(endpoint string, query url.Values) (string, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(c.cfg.BaseURL), "/"))
	if err != nil {
		return "", fmt.Errorf("invalid analysis base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("invalid analysis base URL %q", c.cfg.BaseURL)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/" + endpoint
	if len(query) > 0 {
		base.RawQuery = query.Encode()
	}
	return base.String(), nil
}
