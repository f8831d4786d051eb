package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sitecontact/backend/internal/mail"
	"github.com/sitecontact/backend/internal/model"
	"github.com/sitecontact/backend/internal/ratelimit"
	"github.com/sitecontact/backend/internal/repository"
)

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	repo     repository.SubmissionRepository
	limiter  ratelimit.Store
	sender   mail.Sender
	composer mail.Composer
	now      func() time.Time
}

// NewContactService creates a ContactService that stores submissions in repo,
// counts requests in limiter and delivers notifications through sender.
func NewContactService(
	repo repository.SubmissionRepository,
	limiter ratelimit.Store,
	sender mail.Sender,
	composer mail.Composer,
) ContactService {
	return &contactServiceImpl{
		repo:     repo,
		limiter:  limiter,
		sender:   sender,
		composer: composer,
		now:      time.Now,
	}
}

// Submit runs the submission steps in order and stops at the first failure:
// rate check, presence check, sanitize, email format, message length,
// persist, notify admin, notify submitter. Nothing is retried.
func (s *contactServiceImpl) Submit(ctx context.Context, in SubmitInput) (*model.Submission, error) {
	res, err := s.limiter.Allow(ctx, in.ClientKey, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: rate limit store: %w", ErrInternal, err)
	}
	if !res.Allowed {
		slog.InfoContext(ctx, "contact submission rate limited",
			"client", in.ClientKey, "count", res.Count, "retry_after", res.RetryAfter)
		return nil, &RateLimitedError{RetryAfter: res.RetryAfter}
	}

	if in.Name == "" || in.Email == "" || in.Message == "" {
		return nil, &ValidationError{Message: msgFieldsRequired}
	}

	sub := &model.Submission{
		Name:    Sanitize(in.Name),
		Email:   Sanitize(in.Email),
		Message: Sanitize(in.Message),
	}
	if !ValidEmail(sub.Email) {
		return nil, &ValidationError{Message: msgInvalidEmail}
	}
	if !ValidMessageLength(sub.Message) {
		return nil, &ValidationError{Message: msgMessageLength}
	}

	sub.CreatedAt = s.now().UTC()
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("%w: store submission: %w", ErrInternal, err)
	}

	adminMsg, err := s.composer.AdminNotification(sub, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if err := s.sender.Send(ctx, adminMsg); err != nil {
		return nil, fmt.Errorf("%w: admin notification for %s: %w", ErrInternal, sub.ID, err)
	}

	confirmMsg, err := s.composer.Confirmation(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if err := s.sender.Send(ctx, confirmMsg); err != nil {
		return nil, fmt.Errorf("%w: confirmation for %s: %w", ErrInternal, sub.ID, err)
	}

	slog.InfoContext(ctx, "contact submission accepted", "id", sub.ID, "client", in.ClientKey)
	return sub, nil
}

// Get returns a stored submission by ID.
func (s *contactServiceImpl) Get(ctx context.Context, id string) (*model.Submission, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns stored submissions according to the given pagination options.
func (s *contactServiceImpl) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
	return s.repo.List(ctx, opts)
}
