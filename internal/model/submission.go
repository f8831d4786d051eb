package model

import "time"

// Submission is a contact form entry. It is created once per accepted
// request and never modified afterwards.
type Submission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmissionListOptions carries pagination parameters for listing submissions.
type SubmissionListOptions struct {
	Limit  int
	Offset int
}
