// Package lookup holds placeholder collaborators used until real integrations are configured.
package lookup

import (
	"context"
	"strings"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/ports"
)

// EchoAddressValidator treats every address as valid and echoes it back.
type EchoAddressValidator struct{}

var _ ports.AddressValidator = EchoAddressValidator{}

// ValidateAddresses returns one valid entry per non-empty input.
func (EchoAddressValidator) ValidateAddresses(_ context.Context, addresses []string) ([]domain.ValidatedAddress, error) {
	out := make([]domain.ValidatedAddress, 0, len(addresses))
	for _, addr := range addresses {
		trimmed := strings.TrimSpace(addr)
		if trimmed == "" {
			continue
		}
		out = append(out, domain.ValidatedAddress{Original: addr, Formatted: trimmed, Valid: true})
	}
	return out, nil
}

// NoPropertyMatcher never finds a property.
type NoPropertyMatcher struct{}

var _ ports.PropertyMatcher = NoPropertyMatcher{}

// MatchProperties returns an empty slice.
func (NoPropertyMatcher) MatchProperties(context.Context, []domain.ValidatedAddress) ([]domain.PropertyMatch, error) {
	return []domain.PropertyMatch{}, nil
}

// EchoEntityVerifier accepts every extracted entity unchanged.
type EchoEntityVerifier struct{}

var _ ports.LegalEntityVerifier = EchoEntityVerifier{}

// VerifyEntities returns the input.
func (EchoEntityVerifier) VerifyEntities(_ context.Context, entities domain.ExtractedEntities) (domain.ExtractedEntities, error) {
	return entities, nil
}

// NoUserMatcher never matches a user.
type NoUserMatcher struct{}

var _ ports.UserMatcher = NoUserMatcher{}

// MatchUsers returns an empty list.
func (NoUserMatcher) MatchUsers(context.Context, domain.AlertRecord) ([]string, error) {
	return []string{}, nil
}
