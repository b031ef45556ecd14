package ocr

import (
	"math"
	"unicode/utf8"
)

// StatsEntry points at the outcome holding an extremum.
type StatsEntry struct {
	ProviderID   string `json:"providerId"`
	ProviderName string `json:"providerName"`
	TimeMs       int64  `json:"timeMs"`
	CharCount    int    `json:"charCount"`
}

// Stats are descriptive statistics over a benchmark session's succeeded
// outcomes. Extrema are nil when no outcome succeeded.
type Stats struct {
	Fastest          *StatsEntry `json:"fastest"`
	Slowest          *StatsEntry `json:"slowest"`
	MostCharacters   *StatsEntry `json:"mostCharacters"`
	LeastCharacters  *StatsEntry `json:"leastCharacters"`
	AverageTimeMs    int64       `json:"averageTimeMs"`
	AverageCharCount int         `json:"averageCharCount"`
	SuccessCount     int         `json:"successCount"`
	ErrorCount       int         `json:"errorCount"`
}

// ComputeStats computes statistics over the session's terminal outcomes.
// Queued and Running outcomes are excluded from all counts; calling before
// completion under-counts but never fails. Ties break stably: the first
// outcome in selection order wins. Character counts are Unicode-aware.
func ComputeStats(s *Session) Stats {
	var stats Stats
	var totalTime int64
	var totalChars int

	for _, o := range s.Outcomes() {
		switch o.State {
		case StateFailed:
			stats.ErrorCount++
			continue
		case StateSucceeded:
			// handled below
		default:
			continue
		}

		stats.SuccessCount++
		entry := &StatsEntry{
			ProviderID:   o.ProviderID,
			ProviderName: o.ProviderName,
			TimeMs:       o.Result.ProcessingTimeMs,
			CharCount:    utf8.RuneCountInString(o.Result.FullText),
		}
		totalTime += entry.TimeMs
		totalChars += entry.CharCount

		if stats.Fastest == nil || entry.TimeMs < stats.Fastest.TimeMs {
			stats.Fastest = entry
		}
		if stats.Slowest == nil || entry.TimeMs > stats.Slowest.TimeMs {
			stats.Slowest = entry
		}
		if stats.MostCharacters == nil || entry.CharCount > stats.MostCharacters.CharCount {
			stats.MostCharacters = entry
		}
		if stats.LeastCharacters == nil || entry.CharCount < stats.LeastCharacters.CharCount {
			stats.LeastCharacters = entry
		}
	}

	if stats.SuccessCount > 0 {
		n := float64(stats.SuccessCount)
		stats.AverageTimeMs = int64(math.Round(float64(totalTime) / n))
		stats.AverageCharCount = int(math.Round(float64(totalChars) / n))
	}

	return stats
}
