// Package scoring holds the heuristic quality, confidence and opportunity scores.
// The opportunity score is additive arithmetic over capped components; nothing
// here is trained or random.
package scoring

import (
	"strings"
	"unicode/utf8"

	"AgentRadar/internal/domain"
)

const (
	// QualityThreshold is the minimum data-quality score a record needs before extraction.
	QualityThreshold = 0.75
	// NERThreshold is the minimum entity confidence a record needs before scoring.
	NERThreshold = 0.6

	minContentLength = 100
)

// DataQuality scores a raw record in [0,1]. dates are the dates extracted from its text.
func DataQuality(raw domain.RawRecord, dates []string) float64 {
	score := 0.5
	if utf8.RuneCountInString(strings.TrimSpace(raw.Content)) > minContentLength {
		score += 0.2
	}
	if strings.TrimSpace(raw.Title) != "" {
		score += 0.1
	}
	if raw.HasDate() || len(dates) > 0 {
		score += 0.1
	}
	lower := strings.ToLower(raw.Content + " " + raw.Title)
	if strings.Contains(lower, "estate") || strings.Contains(lower, "probate") {
		score += 0.1
	}
	return clamp(score, 0, 1)
}

// NERConfidence scores how many entity groups were found, in [0,1].
func NERConfidence(ents domain.ExtractedEntities) float64 {
	score := 0.0
	if len(ents.Executors) > 0 {
		score += 0.3
	}
	if len(ents.LegalFirms) > 0 {
		score += 0.2
	}
	if len(ents.Contacts) > 0 {
		score += 0.2
	}
	if len(ents.Addresses) > 0 {
		score += 0.3
	}
	return clamp(score, 0, 1)
}

// PassesQuality compares with a small tolerance so 0.5+0.2+0.05 style sums are not lost to rounding.
func PassesQuality(score, threshold float64) bool {
	return score+1e-9 >= threshold
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
