package ports

import (
	"context"
	"time"

	"AgentRadar/internal/domain"
)

// RecordSource pulls raw lead text for a region from upstream collectors.
// Failing sources are skipped; the returned slice holds what the rest produced.
type RecordSource interface {
	FetchRegion(ctx context.Context, region string, day time.Time) ([]domain.RawRecord, error)
}

// AddressValidator normalizes raw address strings.
type AddressValidator interface {
	ValidateAddresses(ctx context.Context, addresses []string) ([]domain.ValidatedAddress, error)
}

// PropertyMatcher looks up candidate properties for validated addresses.
type PropertyMatcher interface {
	MatchProperties(ctx context.Context, addresses []domain.ValidatedAddress) ([]domain.PropertyMatch, error)
}

// LegalEntityVerifier returns the verified subset of extracted entities.
type LegalEntityVerifier interface {
	VerifyEntities(ctx context.Context, entities domain.ExtractedEntities) (domain.ExtractedEntities, error)
}

// AlertRepository is a create-only sink for alerts; it assigns identifiers.
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert domain.AlertRecord) (string, error)
	ListRecent(ctx context.Context, region string, limit int) ([]domain.AlertRecord, error)
}

// Cache stores best-effort copies of high-score alerts.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// UserMatcher decides which users should hear about an alert.
type UserMatcher interface {
	MatchUsers(ctx context.Context, alert domain.AlertRecord) ([]string, error)
}

// Notifier delivers an alert payload to a single user.
type Notifier interface {
	Notify(ctx context.Context, payload domain.NotificationPayload) error
}

// Describer writes a human description of a validated lead (e.g., via an LLM).
type Describer interface {
	Describe(ctx context.Context, record domain.ValidatedRecord) (string, error)
}

// TaskQueue persists delayed actions with their due times.
type TaskQueue interface {
	Enqueue(ctx context.Context, task domain.Task) (string, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Task, error)
	Complete(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, dueAt time.Time, cause string) error
	Fail(ctx context.Context, id string, cause string) error
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	Schedule(spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
