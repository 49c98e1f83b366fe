package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

// DefaultAuditLimit caps an audit listing when the caller gives no limit.
const DefaultAuditLimit = 100

// AuditRepository provides data access for the append-only audit log.
type AuditRepository interface {
	// Create inserts a new audit log entry.
	Create(ctx context.Context, entry *models.AuditLogEntry) error

	// List returns entries matching filter, newest first.
	List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLogEntry, error)

	// GetLatest returns the newest entry for an entity with the given action.
	GetLatest(ctx context.Context, entityType string, entityID uuid.UUID, action string) (*models.AuditLogEntry, error)
}

type auditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) AuditRepository {
	return &auditRepository{db: db}
}

var _ AuditRepository = (*auditRepository)(nil)

const auditColumns = `id, actor, entity_type, entity_id, action, details, created_at`

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now().UTC()

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, actor, entity_type, entity_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Querier(ctx).Exec(ctx, query,
		entry.ID, entry.Actor, entry.EntityType, entry.EntityID, entry.Action, detailsJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLogEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		where = append(where, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		where = append(where, fmt.Sprintf("entity_id = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	query := `SELECT ` + auditColumns + ` FROM audit_log`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d", len(args))

	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		entry, err := scanAuditLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log entries: %w", err)
	}
	return entries, nil
}

func (r *auditRepository) GetLatest(ctx context.Context, entityType string, entityID uuid.UUID, action string) (*models.AuditLogEntry, error) {
	query := `SELECT ` + auditColumns + `
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2 AND action = $3
		ORDER BY created_at DESC
		LIMIT 1`

	entry, err := scanAuditLogEntry(r.db.Querier(ctx).QueryRow(ctx, query, entityType, entityID, action))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("audit entry: %w", apperrors.ErrNotFound)
		}
		return nil, err
	}
	return entry, nil
}

func scanAuditLogEntry(row pgx.Row) (*models.AuditLogEntry, error) {
	var entry models.AuditLogEntry
	var details []byte

	err := row.Scan(&entry.ID, &entry.Actor, &entry.EntityType, &entry.EntityID, &entry.Action, &details, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
	}

	if len(details) > 0 {
		if err := json.Unmarshal(details, &entry.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
		}
	}
	return &entry, nil
}
