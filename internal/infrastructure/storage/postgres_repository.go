package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"AgentRadar/internal/domain"
	"AgentRadar/internal/ports"
)

// ErrNotFound is returned when an update targets a missing row.
var ErrNotFound = errors.New("not found")

const alertsTable = "alerts"

var alertColumns = []string{
	"id", "alert_type", "title", "description", "address", "region", "priority",
	"status", "opportunity_score", "estimated_value", "source", "metadata", "created_at",
}

// PostgresRepository persists alerts into Postgres. It never updates an alert.
type PostgresRepository struct {
	db       *sql.DB
	builder  sq.StatementBuilderType
	validate *validator.Validate
	now      func() time.Time
}

var _ ports.AlertRepository = (*PostgresRepository)(nil)

// Open connects to Postgres via lib/pq and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:       db,
		builder:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		validate: validator.New(),
		now:      time.Now,
	}
}

// CreateAlert validates and inserts an alert, returning the generated identifier.
func (r *PostgresRepository) CreateAlert(ctx context.Context, alert domain.AlertRecord) (string, error) {
	if r.db == nil {
		return "", fmt.Errorf("postgres repository has no database")
	}
	if err := r.validate.Struct(alert); err != nil {
		return "", fmt.Errorf("invalid alert: %w", err)
	}

	id := uuid.NewString()
	createdAt := alert.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}
	metadata := string(alert.Metadata)
	if metadata == "" {
		metadata = "{}"
	}

	query, args, err := r.builder.Insert(alertsTable).
		Columns(alertColumns...).
		Values(
			id,
			string(alert.Type),
			alert.Title,
			alert.Description,
			alert.Address,
			alert.Region,
			string(alert.Priority),
			string(alert.Status),
			alert.OpportunityScore,
			alert.EstimatedValue,
			alert.Source,
			metadata,
			createdAt,
		).ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert alert: %w", err)
	}
	return id, nil
}

// ListRecent returns the newest alerts, optionally for a single region.
func (r *PostgresRepository) ListRecent(ctx context.Context, region string, limit int) ([]domain.AlertRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("postgres repository has no database")
	}
	if limit <= 0 {
		limit = 20
	}

	builder := r.builder.Select(alertColumns...).From(alertsTable)
	if region != "" {
		builder = builder.Where(sq.Eq{"region": region})
	}
	query, args, err := builder.OrderBy("created_at DESC").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}

	var result []domain.AlertRecord
	for rows.Next() {
		var (
			a                           domain.AlertRecord
			alertType, priority, status string
			metadata                    []byte
		)
		if err := rows.Scan(&a.ID, &alertType, &a.Title, &a.Description, &a.Address, &a.Region, &priority,
			&status, &a.OpportunityScore, &a.EstimatedValue, &a.Source, &metadata, &a.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Type = domain.AlertType(alertType)
		a.Priority = domain.Priority(priority)
		a.Status = domain.AlertStatus(status)
		a.Metadata = append([]byte(nil), metadata...)
		result = append(result, a)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}
