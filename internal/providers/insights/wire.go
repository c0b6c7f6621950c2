package insights

import (
	"errors"
	"fmt"

	"introspect/internal/ports"
)

type analyzeResult struct {
	Analysis   *string  `json:"analysis"`
	Expression *string  `json:"expression"`
	Timestamp  *float64 `json:"timestamp"`
	Error      *string  `json:"error"`
}

type analyzeResponse struct {
	Results        *[]analyzeResult `json:"results"`
	TotalProcessed *int             `json:"totalProcessed"`
}

func (r analyzeResponse) validate() (ports.AnalyzeResponse, error) {
	if r.Results == nil {
		return ports.AnalyzeResponse{}, decodeError(endpointAnalyze, errors.New("missing results"))
	}
	out := ports.AnalyzeResponse{
		Results:        make([]ports.AnalyzeResult, 0, len(*r.Results)),
		TotalProcessed: r.TotalProcessed,
	}
	for i, result := range *r.Results {
		if result.Timestamp == nil {
			return ports.AnalyzeResponse{}, decodeError(endpointAnalyze, fmt.Errorf("results[%d]: missing timestamp", i))
		}
		out.Results = append(out.Results, ports.AnalyzeResult{
			Analysis:   result.Analysis,
			Expression: result.Expression,
			Timestamp:  *result.Timestamp,
			Error:      result.Error,
		})
	}
	return out, nil
}

type sessionStats struct {
	TotalInsights       *int           `json:"totalInsights"`
	Duration            *string        `json:"duration"`
	MostCommonEmotion   *string        `json:"mostCommonEmotion"`
	EmotionDistribution map[string]int `json:"emotionDistribution"`
}

type summaryResponse struct {
	Summary      *string       `json:"summary"`
	SessionStats *sessionStats `json:"sessionStats"`
}

func (r summaryResponse) validate() (ports.SummaryResponse, error) {
	if r.Summary == nil {
		return ports.SummaryResponse{}, decodeError(endpointSummary, errors.New("missing summary"))
	}
	out := ports.SummaryResponse{Summary: *r.Summary}
	if r.SessionStats == nil {
		return out, nil
	}

	stats := r.SessionStats
	if stats.TotalInsights == nil || stats.Duration == nil || stats.MostCommonEmotion == nil {
		return ports.SummaryResponse{}, decodeError(endpointSummary, errors.New("incomplete sessionStats"))
	}
	out.SessionStats = &ports.SessionStats{
		TotalInsights:       *stats.TotalInsights,
		Duration:            *stats.Duration,
		MostCommonEmotion:   *stats.MostCommonEmotion,
		EmotionDistribution: stats.EmotionDistribution,
	}
	return out, nil
}

type ttsRequestItem struct {
	Text  string  `json:"text"`
	Voice *string `json:"voice,omitempty"`
}

type ttsResult struct {
	Audio *string `json:"audio"`
	Error *string `json:"error"`
}

type ttsResponse struct {
	Results *[]ttsResult `json:"results"`
}
