package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

const termColumns = "id, name, academic_year, semester, start_date, end_date, created_at, updated_at"

// TermRepository handles persistence for academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository instantiates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// List returns every term, most recent first.
func (r *TermRepository) List(ctx context.Context) ([]models.Term, error) {
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, "SELECT "+termColumns+" FROM terms ORDER BY start_date DESC"); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindByID returns a term by ID.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	var term models.Term
	if err := r.db.GetContext(ctx, &term, "SELECT "+termColumns+" FROM terms WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindByDate returns the term whose range covers at. When ranges overlap the
// one that started last wins.
func (r *TermRepository) FindByDate(ctx context.Context, at time.Time) (*models.Term, error) {
	query := "SELECT " + termColumns + " FROM terms WHERE start_date <= $1 AND end_date >= $1 ORDER BY start_date DESC LIMIT 1"
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, at); err != nil {
		return nil, err
	}
	return &term, nil
}

// Create inserts a term.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now
	const query = `INSERT INTO terms (id, name, academic_year, semester, start_date, end_date, created_at, updated_at)
        VALUES (:id, :name, :academic_year, :semester, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}
