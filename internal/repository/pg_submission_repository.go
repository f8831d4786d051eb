package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitecontact/backend/internal/model"
)

// PgSubmissionRepository is the PostgreSQL implementation of SubmissionRepository.
type PgSubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubmissionRepository creates a PgSubmissionRepository backed by the given pool.
func NewPgSubmissionRepository(pool *pgxpool.Pool) *PgSubmissionRepository {
	return &PgSubmissionRepository{pool: pool}
}

// Ensure PgSubmissionRepository implements SubmissionRepository at compile time.
var _ SubmissionRepository = (*PgSubmissionRepository)(nil)

func (r *PgSubmissionRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Create inserts a contact_submissions row and populates sub.ID from the
// RETURNING clause. sub.CreatedAt is written as given.
func (r *PgSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO contact_submissions (name, email, message, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		sub.Name, sub.Email, sub.Message, sub.CreatedAt,
	).Scan(&sub.ID)
}

func (r *PgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	var s model.Submission
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, message, created_at
		 FROM contact_submissions WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Email, &s.Message, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	// 22P02: invalid_text_representation (id is not a UUID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns submissions newest first, paginated by limit/offset.
func (r *PgSubmissionRepository) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, message, created_at
		 FROM contact_submissions
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Message, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, &s)
	}
	return subs, rows.Err()
}
