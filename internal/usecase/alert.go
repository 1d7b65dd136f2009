package usecase

import (
	"fmt"
	"strings"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/extract"
	"AgentRadar/internal/normalize"
)

const maxTitleRunes = 80

var (
	probateCues = extract.NewKeywordSet("probate", "probate", "certificate of appointment", "estate trustee", "letters of administration")
	courtCues   = extract.NewKeywordSet("court", "court", "power of sale", "foreclosure", "notice of sale", "tribunal")
	estateCues  = extract.NewKeywordSet("estate_sale", "estate sale", "estate auction", "contents sale", "moving sale")
)

// inferAlertType classifies a record from its normalized text. Court cues win over probate cues.
func inferAlertType(rec domain.NormalizedRecord) domain.AlertType {
	text := rec.CleanText + " " + normalize.Normalize(rec.Raw.Title)
	switch {
	case courtCues.Count(text) > 0:
		return domain.AlertTypeCourtNotice
	case probateCues.Count(text) > 0:
		return domain.AlertTypeProbate
	case estateCues.Count(text) > 0:
		return domain.AlertTypeEstateSale
	default:
		return domain.AlertTypeOpportunity
	}
}

func alertTitle(raw domain.RawRecord) string {
	if title := normalize.Collapse(raw.Title); title != "" {
		return title
	}
	text := normalize.Collapse(raw.Content)
	runes := []rune(text)
	if len(runes) > maxTitleRunes {
		return strings.TrimSpace(string(runes[:maxTitleRunes])) + "..."
	}
	if text == "" {
		return "Untitled lead"
	}
	return text
}

func templateDescription(v domain.ValidatedRecord) string {
	s := v.Scored
	parts := []string{
		fmt.Sprintf("%s lead scored %.0f/100 (%s).", s.Record.PropertyType, s.Score, s.Priority()),
	}
	if s.Record.Urgent {
		parts = append(parts, "Urgent sale language present.")
	}
	if len(s.Entities.Executors) > 0 {
		parts = append(parts, "Executor: "+strings.Join(s.Entities.Executors, ", ")+".")
	}
	if len(s.Entities.LegalFirms) > 0 {
		parts = append(parts, "Legal: "+strings.Join(s.Entities.LegalFirms, ", ")+".")
	}
	if len(s.Entities.Contacts) > 0 {
		parts = append(parts, "Contact: "+strings.Join(s.Entities.Contacts, ", ")+".")
	}
	if value := v.EstimatedValue(); value > 0 {
		parts = append(parts, fmt.Sprintf("Estimated value $%.0f.", value))
	}
	return strings.Join(parts, " ")
}
