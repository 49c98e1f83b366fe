package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

// SystemConfigRepository stores raw setting rows.
// Secret values arrive already encrypted; this layer never sees plaintext credentials.
type SystemConfigRepository interface {
	// List returns every stored row. Keys that were never written are absent.
	List(ctx context.Context) ([]*models.SystemConfig, error)

	// Upsert creates or replaces one row.
	Upsert(ctx context.Context, row *models.SystemConfig) error
}

type systemConfigRepository struct {
	db *database.DB
}

// NewSystemConfigRepository creates a new SystemConfigRepository.
func NewSystemConfigRepository(db *database.DB) SystemConfigRepository {
	return &systemConfigRepository{db: db}
}

var _ SystemConfigRepository = (*systemConfigRepository)(nil)

func (r *systemConfigRepository) List(ctx context.Context) ([]*models.SystemConfig, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, `
		SELECT key, value, is_secret, category, updated_by, updated_at
		FROM system_config
		ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query system config: %w", err)
	}

	configs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[models.SystemConfig])
	if err != nil {
		return nil, fmt.Errorf("failed to scan system config: %w", err)
	}
	return configs, nil
}

func (r *systemConfigRepository) Upsert(ctx context.Context, row *models.SystemConfig) error {
	row.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO system_config (key, value, is_secret, category, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    is_secret = EXCLUDED.is_secret,
		    category = EXCLUDED.category,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = EXCLUDED.updated_at`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		row.Key, row.Value, row.IsSecret, row.Category, row.UpdatedBy, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert system config %s: %w", row.Key, err)
	}
	return nil
}
