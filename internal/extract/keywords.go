package extract

import (
	"regexp"
	"strings"
)

// KeywordSet counts whole-word phrase hits in normalized text.
type KeywordSet struct {
	name     string
	phrases  []string
	patterns []*regexp.Regexp
}

// NewKeywordSet compiles each phrase into a word-bounded pattern.
func NewKeywordSet(name string, phrases ...string) KeywordSet {
	set := KeywordSet{name: name}
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		set.phrases = append(set.phrases, phrase)
		set.patterns = append(set.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(phrase)+`\b`))
	}
	return set
}

// Name identifies the set in score breakdowns and logs.
func (k KeywordSet) Name() string {
	return k.name
}

// Count returns the total number of phrase occurrences in text.
func (k KeywordSet) Count(text string) int {
	text = strings.ToLower(text)
	hits := 0
	for _, p := range k.patterns {
		hits += len(p.FindAllStringIndex(text, -1))
	}
	return hits
}

// Matches lists the phrases present in text.
func (k KeywordSet) Matches(text string) []string {
	text = strings.ToLower(text)
	found := []string{}
	for i, p := range k.patterns {
		if p.MatchString(text) {
			found = append(found, k.phrases[i])
		}
	}
	return found
}

var (
	// UrgencyKeywords signal a seller under time or legal pressure.
	UrgencyKeywords = NewKeywordSet("urgency",
		"urgent", "immediate", "immediately", "must sell", "quick sale", "motivated",
		"as is", "power of sale", "court ordered", "foreclosure", "final notice",
		"priced to sell", "liquidation",
	)

	// PropertyValueKeywords hint at a high-value property.
	PropertyValueKeywords = NewKeywordSet("property_value",
		"waterfront", "lakefront", "renovated", "detached", "luxury", "acre", "acres",
		"corner lot", "pool", "heritage", "custom built", "income property", "investment property",
	)

	// TimelineKeywords hint that a listing or sale is imminent.
	TimelineKeywords = NewKeywordSet("timeline",
		"within 30 days", "within 60 days", "closing date", "probate granted",
		"certificate of appointment", "listing soon", "coming soon", "this week",
		"this month", "asap", "auction date",
	)
)
