package scoring

import (
	"math"
	"sort"
	"time"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/extract"
)

const (
	baseScore = 50

	urgencyPerHit  = 5
	urgencyCap     = 25
	propertyPerHit = 4
	propertyCap    = 20
	timelinePerHit = 3
	timelineCap    = 15

	executorBonus = 5
	contactBonus  = 3
	addressBonus  = 2
	entityCap     = 10

	monetaryCap = 10
	recencyCap  = 10

	day = 24 * time.Hour
)

// Scorer computes opportunity scores. The clock is injected for recency.
type Scorer struct {
	now func() time.Time
}

// NewScorer builds a scorer; nil now falls back to time.Now.
func NewScorer(now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now}
}

// Score combines keyword, entity, monetary and recency bonuses into a score clamped to [0,100].
func (s *Scorer) Score(rec domain.NormalizedRecord, ents domain.ExtractedEntities) domain.ScoredRecord {
	return s.ScoreAt(rec, ents, s.now())
}

// ScoreAt scores as of now instead of the scorer's clock.
func (s *Scorer) ScoreAt(rec domain.NormalizedRecord, ents domain.ExtractedEntities, now time.Time) domain.ScoredRecord {
	breakdown := s.Breakdown(rec, ents, now)
	return domain.ScoredRecord{
		Record:        rec,
		Entities:      ents,
		NERConfidence: NERConfidence(ents),
		Score:         clamp(breakdown.Total(), 0, 100),
		Breakdown:     breakdown,
		ScoredAt:      now,
	}
}

// Breakdown returns every capped component of the score.
func (s *Scorer) Breakdown(rec domain.NormalizedRecord, ents domain.ExtractedEntities, now time.Time) domain.ScoreBreakdown {
	text := rec.CleanText
	return domain.ScoreBreakdown{
		Base:          baseScore,
		Urgency:       capped(float64(extract.UrgencyKeywords.Count(text)*urgencyPerHit), urgencyCap),
		PropertyValue: capped(float64(extract.PropertyValueKeywords.Count(text)*propertyPerHit), propertyCap),
		Timeline:      capped(float64(extract.TimelineKeywords.Count(text)*timelinePerHit), timelineCap),
		EntityQuality: entityBonus(ents),
		Monetary:      monetaryBonus(rec.MaxMonetaryValue()),
		Recency:       recencyBonus(rec.Raw.PublishedAt, now),
	}
}

func entityBonus(ents domain.ExtractedEntities) float64 {
	bonus := 0.0
	if len(ents.Executors) > 0 {
		bonus += executorBonus
	}
	if len(ents.Contacts) > 0 {
		bonus += contactBonus
	}
	if len(ents.Addresses) > 0 {
		bonus += addressBonus
	}
	return capped(bonus, entityCap)
}

func monetaryBonus(max float64) float64 {
	switch {
	case max > 1_000_000:
		return capped(10, monetaryCap)
	case max > 500_000:
		return capped(5, monetaryCap)
	default:
		return 0
	}
}

func recencyBonus(published, now time.Time) float64 {
	if published.IsZero() {
		return 0
	}
	age := now.Sub(published)
	switch {
	case age < 7*day:
		return capped(10, recencyCap)
	case age < 30*day:
		return capped(5, recencyCap)
	default:
		return 0
	}
}

func capped(v, limit float64) float64 {
	return math.Min(v, limit)
}

// SortByScore orders records by descending score, keeping input order for ties.
func SortByScore(records []domain.ScoredRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
}
