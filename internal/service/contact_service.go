package service

import (
	"context"
	"errors"
	"time"

	"github.com/sitecontact/backend/internal/model"
)

// Client-facing messages.
const (
	ConfirmationMessage = "Thank you for your message. We will get back to you soon!"

	msgFieldsRequired = "All fields are required"
	msgInvalidEmail   = "Invalid email format"
	msgMessageLength  = "Message must be between 10 and 1000 characters"
)

var (
	// ErrRateLimited is returned when the client has used up its window.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidInput is wrapped by every *ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal wraps storage, rate-limit store and mail failures.
	ErrInternal = errors.New("internal error")
)

// ValidationError is an input problem whose Message is safe to show the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// SubmitInput is one contact form submission as received from the client.
type SubmitInput struct {
	Name      string
	Email     string
	Message   string
	ClientKey string
}

// ContactService defines the business logic for contact form submissions.
type ContactService interface {
	// Submit rate-limits, validates, sanitizes, stores and notifies.
	// Errors match ErrRateLimited, ErrInvalidInput or ErrInternal.
	Submit(ctx context.Context, in SubmitInput) (*model.Submission, error)

	// Get returns a stored submission by ID.
	Get(ctx context.Context, id string) (*model.Submission, error)

	// List returns stored submissions according to the given options.
	List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error)
}

// RateLimitedError carries the remaining wait for a rejected client.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }
