package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const estateNotice = "Estate Trustee: Jane Smith, Phone: 416-555-1234. Immediate sale required. $1,200,000. 123 Main Street, Toronto, ON M5V 1A1."

func TestEntitiesEstateNotice(t *testing.T) {
	t.Parallel()

	ents := Entities(estateNotice)

	assert.Equal(t, []string{"Jane Smith"}, ents.Executors)
	assert.Equal(t, []string{"416-555-1234"}, ents.Contacts)
	if assert.Len(t, ents.Addresses, 1) {
		assert.Contains(t, ents.Addresses[0], "123 Main Street")
		assert.Contains(t, ents.Addresses[0], "M5V 1A1")
	}
	assert.Empty(t, ents.LegalFirms)
	assert.Empty(t, ents.KeyPersons)
}

func TestEntitiesNeverNil(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "!!!???", "lorem ipsum dolor", "\x00\xff\xfe"} {
		ents := Entities(text)
		assert.NotNil(t, ents.Executors, "input %q", text)
		assert.NotNil(t, ents.LegalFirms, "input %q", text)
		assert.NotNil(t, ents.Contacts, "input %q", text)
		assert.NotNil(t, ents.Addresses, "input %q", text)
		assert.NotNil(t, ents.KeyPersons, "input %q", text)
	}
}

func TestEntitiesDeduplicates(t *testing.T) {
	t.Parallel()

	text := "Executor: Robert Brown. Executor: Robert Brown. Call 905-555-0000 or 905-555-0000, email Info@Example.com and info@example.com"
	ents := Entities(text)

	assert.Equal(t, []string{"Robert Brown"}, ents.Executors)
	assert.Equal(t, []string{"905-555-0000", "info@example.com"}, ents.Contacts)
}

func TestEntitiesOverlappingLabels(t *testing.T) {
	t.Parallel()

	// "estate trustee" and "trustee" both match the same label.
	ents := Entities("Estate Trustee: Mary Jones, Toronto")
	assert.Equal(t, []string{"Mary Jones"}, ents.Executors)
}

func TestEntitiesEstateOfLabel(t *testing.T) {
	t.Parallel()

	ents := Entities("Estate of: Harold Green\nContact 905-555-0100")
	assert.Equal(t, []string{"Harold Green"}, ents.Executors)
	assert.Equal(t, []string{"Harold Green"}, ents.KeyPersons)

	// Without the colon "estate of" only names the deceased.
	ents = Entities("In the Estate of Harold Green, deceased.")
	assert.Empty(t, ents.Executors)
	assert.Equal(t, []string{"Harold Green"}, ents.KeyPersons)
}

func TestEntitiesLegalFirmsAndPersons(t *testing.T) {
	t.Parallel()

	text := "In the Estate of Harold Green, deceased. Notice issued by Miller Thomson LLP and Smith & Jones Law Firm. " +
		"Personal Representative: Anne Green; survived by Peter Green."
	ents := Entities(text)

	assert.Contains(t, ents.LegalFirms, "Miller Thomson LLP")
	assert.Contains(t, ents.LegalFirms, "Smith & Jones Law Firm")
	assert.Equal(t, []string{"Anne Green"}, ents.Executors)
	assert.ElementsMatch(t, []string{"Harold Green", "Peter Green"}, ents.KeyPersons)
}

func TestEntitiesLawrenceIsNotAFirm(t *testing.T) {
	t.Parallel()

	ents := Entities("Listing on Lawrence Avenue near Bayview")
	assert.Empty(t, ents.LegalFirms)
}

func TestMonetaryValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []float64
	}{
		{name: "drops small fees", text: "$500 fee, $950,000 sale", want: []float64{950000}},
		{name: "plain digits", text: "asking $875000 firm", want: []float64{875000}},
		{name: "cents", text: "balance $1,234.56 owing", want: []float64{1234.56}},
		{name: "million suffix", text: "valued at $1.2 million", want: []float64{1200000}},
		{name: "k suffix", text: "deposit $50k", want: []float64{50000}},
		{name: "dedup", text: "$1,200,000. Again $1,200,000", want: []float64{1200000}},
		{name: "none", text: "no amounts here 1,000,000", want: []float64{}},
		{name: "threshold inclusive", text: "$999 and $1,000", want: []float64{1000}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MonetaryValues(tt.text))
		})
	}
}

func TestDates(t *testing.T) {
	t.Parallel()

	text := "Filed 2026-10-01, hearing 10/14/2026, sale on October 20, 2026 and again 3 Nov 2026."
	assert.Equal(t, []string{"2026-10-01", "10/14/2026", "October 20, 2026", "3 Nov 2026"}, Dates(text))
	assert.Empty(t, Dates("no dates"))
	assert.NotNil(t, Dates(""))
}

func TestPropertyType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "semi-detached", PropertyType("charming semi-detached home"))
	assert.Equal(t, "condo", PropertyType("2 bed condo downtown"))
	assert.Equal(t, "detached", PropertyType("detached bungalow"))
	assert.Equal(t, "unknown", PropertyType("estate contents sale"))
}

func TestKeywordSetCounts(t *testing.T) {
	t.Parallel()

	text := "urgent! urgent sale, must sell immediately. as is."
	assert.Equal(t, 5, UrgencyKeywords.Count(text))
	assert.True(t, IsUrgent("Immediate sale required"))
	assert.False(t, IsUrgent("has island kitchen"))
	assert.Equal(t, []string{"urgent", "immediately", "must sell", "as is"}, UrgencyKeywords.Matches(text))
	assert.Equal(t, "urgency", UrgencyKeywords.Name())
}
