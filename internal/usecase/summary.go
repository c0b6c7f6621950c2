package usecase

import (
	"math"
	"strconv"
	"strings"
	"time"

	"introspect/internal/domain"
	"introspect/internal/ports"
)

// AverageHeartRate is the rounded mean heart rate over records. Records
// without a heart rate count as 0.
func AverageHeartRate(records []domain.AnalysisRecord) int {
	if len(records) == 0 {
		return 0
	}
	sum := 0
	for _, record := range records {
		if record.Metrics != nil && record.Metrics.HeartRate != nil {
			sum += *record.Metrics.HeartRate
		}
	}
	return int(math.Round(float64(sum) / float64(len(records))))
}

// Headline is the first non-empty line of the summary text, or the full
// text when it has none.
func Headline(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return text
}

// DurationMinutes converts a service-reported duration in seconds to whole
// minutes.
func DurationMinutes(seconds string) int {
	value, err := strconv.ParseFloat(strings.TrimSpace(seconds), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0
	}
	return int(math.Floor(value / 60))
}

// BuildSummary reduces a session buffer and its summary response into the
// record kept in history.
func BuildSummary(id string, sessionID string, date time.Time, records []domain.AnalysisRecord, resp ports.SummaryResponse) domain.SessionSummary {
	summary := domain.SessionSummary{
		ID:               id,
		SessionID:        sessionID,
		Date:             date,
		Headline:         Headline(resp.Summary),
		FullText:         resp.Summary,
		AverageHeartRate: AverageHeartRate(records),
		TotalInsights:    len(records),
	}
	if stats := resp.SessionStats; stats != nil {
		summary.DurationMinutes = DurationMinutes(stats.Duration)
		summary.TotalInsights = stats.TotalInsights
		summary.MostCommonEmotion = stats.MostCommonEmotion
	}
	return summary
}
