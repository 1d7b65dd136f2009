package domain

import (
	"encoding/json"
	"time"
)

// Priority is the HIGH/MEDIUM/LOW tier shown to users.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

const (
	highPriorityScore   = 80
	mediumPriorityScore = 60
)

// PriorityForScore maps an opportunity score onto a tier.
func PriorityForScore(score float64) Priority {
	switch {
	case score >= highPriorityScore:
		return PriorityHigh
	case score >= mediumPriorityScore:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// AlertStatus enumerates alert lifecycle states; this core only creates ACTIVE alerts.
type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "ACTIVE"
	AlertStatusViewed    AlertStatus = "VIEWED"
	AlertStatusDismissed AlertStatus = "DISMISSED"
)

// AlertType classifies the lead by the collector that produced it.
type AlertType string

const (
	AlertTypeEstateSale  AlertType = "ESTATE_SALE"
	AlertTypeProbate     AlertType = "PROBATE"
	AlertTypeCourtNotice AlertType = "COURT_NOTICE"
	AlertTypeOpportunity AlertType = "OPPORTUNITY"
)

// AlertRecord is the durable output of a pipeline run.
type AlertRecord struct {
	ID               string          `json:"id"`
	Type             AlertType       `json:"type" validate:"required"`
	Title            string          `json:"title" validate:"required"`
	Description      string          `json:"description"`
	Address          string          `json:"address"`
	Region           string          `json:"region" validate:"required"`
	Priority         Priority        `json:"priority" validate:"required,oneof=HIGH MEDIUM LOW"`
	Status           AlertStatus     `json:"status" validate:"required"`
	OpportunityScore float64         `json:"opportunityScore" validate:"gte=0,lte=100"`
	EstimatedValue   float64         `json:"estimatedValue" validate:"gte=0"`
	Source           string          `json:"source"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// AlertMetadata is the provenance blob stored alongside every alert.
type AlertMetadata struct {
	RecordID        string             `json:"recordId,omitempty"`
	URL             string             `json:"url,omitempty"`
	PublishedAt     *time.Time         `json:"publishedAt,omitempty"`
	QualityScore    float64            `json:"qualityScore"`
	NERConfidence   float64            `json:"nerConfidence"`
	ValidationScore float64            `json:"validationScore"`
	Breakdown       ScoreBreakdown     `json:"breakdown"`
	Entities        ExtractedEntities  `json:"entities"`
	Dates           []string           `json:"dates"`
	MonetaryValues  []float64          `json:"monetaryValues"`
	PropertyType    string             `json:"propertyType"`
	Urgent          bool               `json:"urgent"`
	Addresses       []ValidatedAddress `json:"validatedAddresses"`
	PropertyMatches []PropertyMatch    `json:"propertyMatches"`
}

// NotificationPayload is what a notifier receives for one matched user.
type NotificationPayload struct {
	UserID   string   `json:"userId"`
	AlertID  string   `json:"alertId"`
	Title    string   `json:"title"`
	Address  string   `json:"address"`
	Region   string   `json:"region"`
	Priority Priority `json:"priority"`
	Score    float64  `json:"score"`
	Value    float64  `json:"estimatedValue"`
	Summary  string   `json:"summary"`
}
