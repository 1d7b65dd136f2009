package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/extract"
	"AgentRadar/internal/normalize"
)

var fixedNow = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func normalized(raw domain.RawRecord) domain.NormalizedRecord {
	clean := normalize.Normalize(raw.Content)
	return domain.NormalizedRecord{
		Raw:            raw,
		CleanText:      clean,
		MonetaryValues: extract.MonetaryValues(raw.Content),
	}
}

func TestDataQuality(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("estate notice text ", 8)
	tests := []struct {
		name  string
		raw   domain.RawRecord
		dates []string
		want  float64
	}{
		{name: "empty", raw: domain.RawRecord{}, want: 0.5},
		{name: "garbage", raw: domain.RawRecord{Content: "%%%% ????"}, want: 0.5},
		{name: "long estate text", raw: domain.RawRecord{Content: long}, want: 0.8},
		{name: "everything", raw: domain.RawRecord{Content: long, Title: "Probate", PublishedAt: fixedNow}, want: 1.0},
		{name: "date from text", raw: domain.RawRecord{Content: "probate"}, dates: []string{"2026-10-01"}, want: 0.7},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, DataQuality(tt.raw, tt.dates), 1e-9)
		})
	}
}

func TestDataQualityGate(t *testing.T) {
	t.Parallel()

	assert.False(t, PassesQuality(DataQuality(domain.RawRecord{Content: "@@@"}, nil), QualityThreshold))
	assert.True(t, PassesQuality(0.75, QualityThreshold))
	assert.True(t, PassesQuality(0.5+0.1+0.1+0.05, QualityThreshold))
}

func TestNERConfidence(t *testing.T) {
	t.Parallel()

	ents := domain.NewExtractedEntities()
	assert.Equal(t, 0.0, NERConfidence(ents))

	ents.Executors = []string{"Jane Smith"}
	ents.Contacts = []string{"416-555-1234"}
	assert.InDelta(t, 0.5, NERConfidence(ents), 1e-9)

	ents.Addresses = []string{"123 Main Street, Toronto, ON M5V 1A1"}
	ents.LegalFirms = []string{"Miller Thomson LLP"}
	assert.InDelta(t, 1.0, NERConfidence(ents), 1e-9)
}

func TestScoreEstateNoticeScenario(t *testing.T) {
	t.Parallel()

	raw := domain.RawRecord{
		Content:     "Estate Trustee: Jane Smith, Phone: 416-555-1234. Immediate sale required. $1,200,000. 123 Main Street, Toronto, ON M5V 1A1.",
		PublishedAt: fixedNow.Add(-48 * time.Hour),
	}
	rec := normalized(raw)
	scored := NewScorer(clock).Score(rec, extract.Entities(raw.Content))

	assert.Equal(t, domain.ScoreBreakdown{
		Base:          50,
		Urgency:       5,
		PropertyValue: 0,
		Timeline:      0,
		EntityQuality: 10,
		Monetary:      10,
		Recency:       10,
	}, scored.Breakdown)
	assert.GreaterOrEqual(t, scored.Score, 85.0)
	assert.Equal(t, domain.PriorityHigh, scored.Priority())
	assert.Equal(t, fixedNow, scored.ScoredAt)
}

func TestScoreComponentCaps(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("urgent must sell foreclosure waterfront luxury renovated pool within 30 days asap this week ", 20) +
		" $5,000,000"
	raw := domain.RawRecord{Content: text, PublishedAt: fixedNow}
	ents := domain.ExtractedEntities{
		Executors: []string{"a"}, Contacts: []string{"b"}, Addresses: []string{"c"},
	}

	scored := NewScorer(clock).Score(normalized(raw), ents)

	assert.Equal(t, float64(urgencyCap), scored.Breakdown.Urgency)
	assert.Equal(t, float64(propertyCap), scored.Breakdown.PropertyValue)
	assert.Equal(t, float64(timelineCap), scored.Breakdown.Timeline)
	assert.Equal(t, float64(entityCap), scored.Breakdown.EntityQuality)
	assert.Equal(t, float64(monetaryCap), scored.Breakdown.Monetary)
	assert.Equal(t, float64(recencyCap), scored.Breakdown.Recency)
	assert.Equal(t, 100.0, scored.Score)
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(clock)
	inputs := []string{
		"",
		"nothing interesting",
		strings.Repeat("immediate ", 1000),
		"$600,000 condo, probate granted, coming soon",
	}
	for _, in := range inputs {
		scored := scorer.Score(normalized(domain.RawRecord{Content: in}), domain.NewExtractedEntities())
		assert.GreaterOrEqual(t, scored.Score, 0.0)
		assert.LessOrEqual(t, scored.Score, 100.0)
	}
}

func TestMonetaryAndRecencyBonuses(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10.0, monetaryBonus(1_000_001))
	assert.Equal(t, 5.0, monetaryBonus(1_000_000))
	assert.Equal(t, 5.0, monetaryBonus(500_001))
	assert.Equal(t, 0.0, monetaryBonus(500_000))

	assert.Equal(t, 0.0, recencyBonus(time.Time{}, fixedNow))
	assert.Equal(t, 10.0, recencyBonus(fixedNow.Add(-6*day), fixedNow))
	assert.Equal(t, 5.0, recencyBonus(fixedNow.Add(-7*day), fixedNow))
	assert.Equal(t, 5.0, recencyBonus(fixedNow.Add(-29*day), fixedNow))
	assert.Equal(t, 0.0, recencyBonus(fixedNow.Add(-30*day), fixedNow))
}

func TestScoreIsDeterministic(t *testing.T) {
	t.Parallel()

	raw := domain.RawRecord{Content: "Urgent estate sale, waterfront, $750,000", PublishedAt: fixedNow.Add(-10 * day)}
	scorer := NewScorer(clock)
	first := scorer.Score(normalized(raw), extract.Entities(raw.Content))
	for i := 0; i < 10; i++ {
		require.Equal(t, first.Score, scorer.Score(normalized(raw), extract.Entities(raw.Content)).Score)
	}
}

func TestSortByScoreStable(t *testing.T) {
	t.Parallel()

	records := []domain.ScoredRecord{
		{Score: 60, Record: domain.NormalizedRecord{Raw: domain.RawRecord{ID: "a"}}},
		{Score: 90, Record: domain.NormalizedRecord{Raw: domain.RawRecord{ID: "b"}}},
		{Score: 60, Record: domain.NormalizedRecord{Raw: domain.RawRecord{ID: "c"}}},
		{Score: 75, Record: domain.NormalizedRecord{Raw: domain.RawRecord{ID: "d"}}},
	}
	SortByScore(records)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Record.Raw.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}
