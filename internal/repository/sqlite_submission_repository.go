package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sitecontact/backend/internal/model"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS contact_submissions (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contact_submissions_created_at
	ON contact_submissions (created_at DESC);`

// SQLiteSubmissionRepository stores submissions in an embedded SQLite
// database. It is meant for local development and single-node deployments.
type SQLiteSubmissionRepository struct {
	db *sql.DB
}

var _ SubmissionRepository = (*SQLiteSubmissionRepository)(nil)

// NewSQLiteSubmissionRepository opens (or creates) the database at path and
// ensures the schema exists. path may be ":memory:".
func NewSQLiteSubmissionRepository(ctx context.Context, path string) (*SQLiteSubmissionRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection: a ":memory:" database is per-connection, and SQLite
	// serializes writers anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteSubmissionRepository{db: db}, nil
}

func (r *SQLiteSubmissionRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteSubmissionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create inserts the submission and assigns a random UUID to sub.ID.
func (r *SQLiteSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contact_submissions (id, name, email, message, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, sub.Name, sub.Email, sub.Message, sub.CreatedAt.UnixNano(),
	)
	if err != nil {
		return err
	}
	sub.ID = id
	return nil
}

func (r *SQLiteSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, message, created_at
		 FROM contact_submissions WHERE id = ?`, id)
	s, err := scanSQLiteSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns submissions newest first, paginated by limit/offset.
func (r *SQLiteSubmissionRepository) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, message, created_at
		 FROM contact_submissions
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*model.Submission
	for rows.Next() {
		s, err := scanSQLiteSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSubmission(row rowScanner) (*model.Submission, error) {
	var (
		s       model.Submission
		created int64
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Message, &created); err != nil {
		return nil, err
	}
	s.CreatedAt = time.Unix(0, created).UTC()
	return &s, nil
}
