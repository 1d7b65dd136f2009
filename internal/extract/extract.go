// Package extract pulls entities, dates and amounts out of lead text with
// regular expressions. It is deliberately over-inclusive; later stages filter.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"AgentRadar/internal/domain"
)

// MinMonetaryValue is the smallest amount kept; smaller "$" values are fees and noise.
const MinMonetaryValue = 1000

var executorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bestate\s+trustees?\s*:\s*([^,.\n;]{2,80})`),
	regexp.MustCompile(`(?i)\bexecut(?:or|rix)s?\s*:\s*([^,.\n;]{2,80})`),
	regexp.MustCompile(`(?i)\bpersonal\s+representatives?\s*:\s*([^,.\n;]{2,80})`),
	regexp.MustCompile(`(?i)\badministrat(?:or|rix)\s*:\s*([^,.\n;]{2,80})`),
	regexp.MustCompile(`(?i)\btrustees?\s*:\s*([^,.\n;]{2,80})`),
	regexp.MustCompile(`(?i)\bestate\s+of\s*:\s*([^,.\n;]{2,80})`),
}

var keyPersonPattern = regexp.MustCompile(
	`(?:(?i:estate of|in memory of|survived by|beneficiary|the late|deceased)\s*:?\s+)` +
		`([A-Z][a-z'-]+(?:[ \t]+[A-Z]\.)?(?:[ \t]+[A-Z][a-z'-]+){1,2})`)

var legalFirmPattern = regexp.MustCompile(
	`\b[A-Z][A-Za-z'.-]*(?:\s+(?:[A-Z][A-Za-z'.-]*|&|and)){0,5}\s+` +
		`(?:LLP|Law Firm|Law Office|Law Group|Law|Professional Corporation|Barristers and Solicitors|Barristers|Solicitors|Legal Services)\b`)

var (
	phonePattern = regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)\s?|\b\d{3}[-.\s])\d{3}[-.\s]\d{4}\b`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

var addressPattern = regexp.MustCompile(
	`\b\d{1,6}\s+[A-Z][A-Za-z0-9.' -]{1,60}?,\s*[A-Z][A-Za-z.' -]{1,40}?,?\s+ON\s+[A-Z]\d[A-Z]\s?\d[A-Z]\d\b`)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
	regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?,?\s+\d{4}\b`),
}

var moneyPattern = regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?(?:\s?(?i:(million|mil|m|thousand|k))\b)?`)

// Entities runs every entity pattern over text. Groups are never nil.
func Entities(text string) domain.ExtractedEntities {
	ents := domain.NewExtractedEntities()
	if strings.TrimSpace(text) == "" {
		return ents
	}

	var executors uniqueList
	for _, p := range executorPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			executors.add(m[1])
		}
	}
	ents.Executors = executors.values()

	var firms uniqueList
	for _, m := range legalFirmPattern.FindAllString(text, -1) {
		firms.add(m)
	}
	ents.LegalFirms = firms.values()

	var contacts uniqueList
	for _, m := range phonePattern.FindAllString(text, -1) {
		contacts.add(m)
	}
	for _, m := range emailPattern.FindAllString(text, -1) {
		contacts.add(strings.ToLower(m))
	}
	ents.Contacts = contacts.values()

	var addresses uniqueList
	for _, m := range addressPattern.FindAllString(text, -1) {
		addresses.add(m)
	}
	ents.Addresses = addresses.values()

	var persons uniqueList
	for _, m := range keyPersonPattern.FindAllStringSubmatch(text, -1) {
		persons.add(m[1])
	}
	ents.KeyPersons = persons.values()

	return ents
}

// Dates returns the date-shaped strings in text.
func Dates(text string) []string {
	var dates uniqueList
	for _, p := range datePatterns {
		for _, m := range p.FindAllString(text, -1) {
			dates.add(m)
		}
	}
	return dates.values()
}

// MonetaryValues returns "$"-prefixed amounts of at least MinMonetaryValue, de-duplicated in text order.
func MonetaryValues(text string) []float64 {
	values := []float64{}
	seen := map[float64]struct{}{}
	for _, m := range moneyPattern.FindAllStringSubmatch(text, -1) {
		v, ok := parseAmount(m[1], m[2], m[3])
		if !ok || v < MinMonetaryValue {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

func parseAmount(whole, fraction, suffix string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(whole, ",", "")+fraction, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(suffix) {
	case "million", "mil", "m":
		v *= 1_000_000
	case "thousand", "k":
		v *= 1_000
	}
	return v, true
}

var propertyTypes = []struct {
	kind     string
	keywords KeywordSet
}{
	{"semi-detached", NewKeywordSet("semi", "semi-detached", "semi detached")},
	{"townhouse", NewKeywordSet("townhouse", "townhouse", "townhome", "row house")},
	{"condo", NewKeywordSet("condo", "condo", "condominium", "apartment", "suite")},
	{"multi-unit", NewKeywordSet("multi", "duplex", "triplex", "fourplex", "multi-unit")},
	{"cottage", NewKeywordSet("cottage", "cottage", "cabin", "chalet")},
	{"land", NewKeywordSet("land", "vacant land", "vacant lot", "building lot", "acreage")},
	{"detached", NewKeywordSet("detached", "detached", "bungalow", "single family", "house")},
}

// PropertyType infers a coarse property type from normalized text, or "unknown".
func PropertyType(text string) string {
	for _, pt := range propertyTypes {
		if pt.keywords.Count(text) > 0 {
			return pt.kind
		}
	}
	return "unknown"
}

// IsUrgent reports whether any urgency keyword appears.
func IsUrgent(text string) bool {
	return UrgencyKeywords.Count(text) > 0
}

type uniqueList struct {
	seen  map[string]struct{}
	items []string
}

func (u *uniqueList) add(s string) {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, " ,;:")
	if s == "" {
		return
	}
	key := strings.ToLower(s)
	if u.seen == nil {
		u.seen = map[string]struct{}{}
	}
	if _, ok := u.seen[key]; ok {
		return
	}
	u.seen[key] = struct{}{}
	u.items = append(u.items, s)
}

func (u *uniqueList) values() []string {
	if u.items == nil {
		return []string{}
	}
	return u.items
}
