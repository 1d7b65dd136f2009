package lookup

import (
	"context"
	"strings"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/ports"
)

// Subscription is a user's interest in a set of regions.
type Subscription struct {
	UserID   string
	Regions  []string
	MinScore float64
}

// SubscriberMatcher matches alerts to users from a static subscription list.
type SubscriberMatcher struct {
	subs []Subscription
}

var _ ports.UserMatcher = (*SubscriberMatcher)(nil)

// NewSubscriberMatcher copies the subscription list.
func NewSubscriberMatcher(subs []Subscription) *SubscriberMatcher {
	return &SubscriberMatcher{subs: append([]Subscription(nil), subs...)}
}

// MatchUsers returns users subscribed to the alert's region whose minimum score is met.
// An empty region list subscribes to every region.
func (m *SubscriberMatcher) MatchUsers(_ context.Context, alert domain.AlertRecord) ([]string, error) {
	users := []string{}
	seen := map[string]struct{}{}
	for _, sub := range m.subs {
		if sub.UserID == "" || alert.OpportunityScore < sub.MinScore || !coversRegion(sub.Regions, alert.Region) {
			continue
		}
		if _, ok := seen[sub.UserID]; ok {
			continue
		}
		seen[sub.UserID] = struct{}{}
		users = append(users, sub.UserID)
	}
	return users, nil
}

func coversRegion(regions []string, region string) bool {
	if len(regions) == 0 {
		return true
	}
	for _, r := range regions {
		if strings.EqualFold(r, region) {
			return true
		}
	}
	return false
}
