// Package validation cross-checks extracted addresses and entities against
// external collaborators and derives a validation score in [0,1].
package validation

import (
	"context"
	"fmt"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/ports"
)

// Threshold is the minimum validation score a record needs to be persisted.
const Threshold = 0.7

// Validator calls the address, property and legal-entity collaborators.
type Validator struct {
	addresses  ports.AddressValidator
	properties ports.PropertyMatcher
	legal      ports.LegalEntityVerifier
}

// NewValidator wires the three collaborators; any of them may be nil.
func NewValidator(addresses ports.AddressValidator, properties ports.PropertyMatcher, legal ports.LegalEntityVerifier) *Validator {
	return &Validator{addresses: addresses, properties: properties, legal: legal}
}

// Validate checks a scored record. Collaborator errors are returned so the caller can drop the record.
func (v *Validator) Validate(ctx context.Context, scored domain.ScoredRecord) (domain.ValidatedRecord, error) {
	out := domain.ValidatedRecord{
		Scored:           scored,
		Addresses:        []domain.ValidatedAddress{},
		PropertyMatches:  []domain.PropertyMatch{},
		VerifiedEntities: domain.NewExtractedEntities(),
	}

	if v.addresses != nil && len(scored.Entities.Addresses) > 0 {
		validated, err := v.addresses.ValidateAddresses(ctx, scored.Entities.Addresses)
		if err != nil {
			return domain.ValidatedRecord{}, fmt.Errorf("validate addresses: %w", err)
		}
		out.Addresses = append(out.Addresses, validated...)
	}

	valid := validAddresses(out.Addresses)
	if v.properties != nil && len(valid) > 0 {
		matches, err := v.properties.MatchProperties(ctx, valid)
		if err != nil {
			return domain.ValidatedRecord{}, fmt.Errorf("match properties: %w", err)
		}
		out.PropertyMatches = append(out.PropertyMatches, matches...)
	}

	if v.legal != nil {
		verified, err := v.legal.VerifyEntities(ctx, scored.Entities)
		if err != nil {
			return domain.ValidatedRecord{}, fmt.Errorf("verify entities: %w", err)
		}
		out.VerifiedEntities = verified
	}

	out.ValidationScore = Score(len(valid) > 0, len(out.PropertyMatches) > 0, len(out.VerifiedEntities.LegalFirms) > 0)
	return out, nil
}

// Score is base 0.5, +0.2 for an address, +0.2 for a property match and +0.1 for a legal firm, clamped to 1.
func Score(hasAddress, hasProperty, hasLegalFirm bool) float64 {
	score := 0.5
	if hasAddress {
		score += 0.2
	}
	if hasProperty {
		score += 0.2
	}
	if hasLegalFirm {
		score += 0.1
	}
	if score > 1 {
		return 1
	}
	return score
}

// Passes reports whether a record may be persisted.
func Passes(record domain.ValidatedRecord) bool {
	return record.ValidationScore+1e-9 >= Threshold
}

func validAddresses(addrs []domain.ValidatedAddress) []domain.ValidatedAddress {
	valid := make([]domain.ValidatedAddress, 0, len(addrs))
	for _, a := range addrs {
		if a.Valid {
			valid = append(valid, a)
		}
	}
	return valid
}
