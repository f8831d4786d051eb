package repository

import (
	"context"

	"github.com/sitecontact/backend/internal/model"
)

// DB は DB 接続の生存確認を行うインターフェース
type DB interface {
	Ping(ctx context.Context) error
}

// SubmissionRepository defines the persistence interface for contact submissions.
// Submissions are append-only: there is no update or delete.
type SubmissionRepository interface {
	DB
	Create(ctx context.Context, sub *model.Submission) error
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error)
}
