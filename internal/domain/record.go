package domain

import "time"

// RawRecord is a text blob produced by a collector. It is never mutated after collection.
type RawRecord struct {
	ID          string
	Title       string
	Content     string
	URL         string
	Source      string
	Region      string
	PublishedAt time.Time
}

// HasDate reports whether the collector supplied a publish date.
func (r RawRecord) HasDate() bool {
	return !r.PublishedAt.IsZero()
}

// NormalizedRecord adds the cleaned text and simple structured fields.
type NormalizedRecord struct {
	Raw            RawRecord
	CleanText      string
	Dates          []string
	MonetaryValues []float64
	PropertyType   string
	Urgent         bool
	QualityScore   float64
}

// MaxMonetaryValue returns the largest extracted amount or zero.
func (n NormalizedRecord) MaxMonetaryValue() float64 {
	var max float64
	for _, v := range n.MonetaryValues {
		if v > max {
			max = v
		}
	}
	return max
}

// ExtractedEntities groups the pattern matches pulled from a record.
// Every group is non-nil and de-duplicated in first-seen order.
type ExtractedEntities struct {
	Executors  []string `json:"executors"`
	LegalFirms []string `json:"legalFirms"`
	Contacts   []string `json:"contacts"`
	Addresses  []string `json:"addresses"`
	KeyPersons []string `json:"keyPersons"`
}

// NewExtractedEntities returns a value with all groups initialised.
func NewExtractedEntities() ExtractedEntities {
	return ExtractedEntities{
		Executors:  []string{},
		LegalFirms: []string{},
		Contacts:   []string{},
		Addresses:  []string{},
		KeyPersons: []string{},
	}
}

// ScoreBreakdown lists the capped components that make up an opportunity score.
type ScoreBreakdown struct {
	Base          float64 `json:"base"`
	Urgency       float64 `json:"urgency"`
	PropertyValue float64 `json:"propertyValue"`
	Timeline      float64 `json:"timeline"`
	EntityQuality float64 `json:"entityQuality"`
	Monetary      float64 `json:"monetary"`
	Recency       float64 `json:"recency"`
}

// Total sums every component without clamping.
func (b ScoreBreakdown) Total() float64 {
	return b.Base + b.Urgency + b.PropertyValue + b.Timeline + b.EntityQuality + b.Monetary + b.Recency
}

// ScoredRecord carries the opportunity score in [0,100].
type ScoredRecord struct {
	Record        NormalizedRecord
	Entities      ExtractedEntities
	NERConfidence float64
	Score         float64
	Breakdown     ScoreBreakdown
	ScoredAt      time.Time
}

// Priority derives the alert tier from the opportunity score.
func (s ScoredRecord) Priority() Priority {
	return PriorityForScore(s.Score)
}

// ValidatedAddress is the address validator's answer for one raw address.
type ValidatedAddress struct {
	Original  string `json:"original"`
	Formatted string `json:"formatted"`
	Valid     bool   `json:"valid"`
}

// PropertyMatch is a candidate property returned by a lookup.
type PropertyMatch struct {
	PropertyID     string  `json:"propertyId"`
	Address        string  `json:"address"`
	EstimatedValue float64 `json:"estimatedValue"`
	Confidence     float64 `json:"confidence"`
}

// ValidatedRecord is a scored record checked against external sources.
type ValidatedRecord struct {
	Scored           ScoredRecord
	Addresses        []ValidatedAddress
	PropertyMatches  []PropertyMatch
	VerifiedEntities ExtractedEntities
	ValidationScore  float64
}

// PrimaryAddress returns the first valid formatted address, falling back to the first raw one.
func (v ValidatedRecord) PrimaryAddress() string {
	for _, addr := range v.Addresses {
		if addr.Valid && addr.Formatted != "" {
			return addr.Formatted
		}
	}
	if len(v.Scored.Entities.Addresses) > 0 {
		return v.Scored.Entities.Addresses[0]
	}
	return ""
}

// EstimatedValue prefers a matched property valuation over the text's largest amount.
func (v ValidatedRecord) EstimatedValue() float64 {
	var best float64
	for _, m := range v.PropertyMatches {
		if m.EstimatedValue > best {
			best = m.EstimatedValue
		}
	}
	if best > 0 {
		return best
	}
	return v.Scored.Record.MaxMonetaryValue()
}
