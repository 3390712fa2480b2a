package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SequenceRepository allocates identifier sequences atomically per scope.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next returns the next value for scope. The first call for a scope stores
// seed; later calls increment, never falling below seed. The upsert runs as a
// single statement so concurrent callers never receive the same value.
func (r *SequenceRepository) Next(ctx context.Context, scope string, seed int) (int, error) {
	const query = `INSERT INTO id_sequences (scope, last_value, updated_at) VALUES ($1, $2, NOW())
        ON CONFLICT (scope) DO UPDATE SET last_value = GREATEST(id_sequences.last_value + 1, EXCLUDED.last_value), updated_at = NOW()
        RETURNING last_value`
	var value int
	if err := r.db.GetContext(ctx, &value, query, scope, seed); err != nil {
		return 0, fmt.Errorf("allocate sequence %s: %w", scope, err)
	}
	return value, nil
}
