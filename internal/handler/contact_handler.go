package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sitecontact/backend/internal/metrics"
	"github.com/sitecontact/backend/internal/model"
	"github.com/sitecontact/backend/internal/repository"
	"github.com/sitecontact/backend/internal/service"
)

const maxBodyBytes = 64 << 10

const (
	errInvalidBody = "Invalid request body"
	errRateLimited = "Too many requests. Please try again later."
	errInternal    = "Failed to process your request. Please try again later."
)

// ContactHandler handles contact form submission and the admin listing.
type ContactHandler struct {
	contactService service.ContactService
	clientKey      ClientKeyFunc
}

// NewContactHandler creates a ContactHandler with the given service.
func NewContactHandler(contactService service.ContactService, clientKey ClientKeyFunc) *ContactHandler {
	return &ContactHandler{contactService: contactService, clientKey: clientKey}
}

// submitRequest is the expected JSON body for POST /api/contact.
type submitRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		metrics.ObserveSubmission(metrics.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	_, err := h.contactService.Submit(r.Context(), service.SubmitInput{
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		ClientKey: h.clientKey(r),
	})

	var (
		ve *service.ValidationError
		rl *service.RateLimitedError
	)
	switch {
	case err == nil:
		metrics.ObserveSubmission(metrics.OutcomeAccepted)
		writeJSON(w, http.StatusOK, map[string]string{"message": service.ConfirmationMessage})
	case errors.As(err, &rl):
		metrics.ObserveSubmission(metrics.OutcomeRateLimited)
		w.Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(rl.RetryAfter.Seconds())))))
		writeError(w, http.StatusTooManyRequests, errRateLimited)
	case errors.Is(err, service.ErrRateLimited):
		metrics.ObserveSubmission(metrics.OutcomeRateLimited)
		writeError(w, http.StatusTooManyRequests, errRateLimited)
	case errors.As(err, &ve):
		metrics.ObserveSubmission(metrics.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, ve.Message)
	default:
		metrics.ObserveSubmission(metrics.OutcomeError)
		slog.ErrorContext(r.Context(), "contact form error", "error", err)
		writeError(w, http.StatusInternalServerError, errInternal)
	}
}

// adminListResponse is the JSON response for GET /api/admin/contacts.
type adminListResponse struct {
	Submissions []*model.Submission `json:"submissions"`
}

// AdminList handles GET /api/admin/contacts.
// Supports query params: limit (1..100, default 20), offset.
func (h *ContactHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	opts := model.SubmissionListOptions{Limit: 20}

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			opts.Limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	subs, err := h.contactService.List(r.Context(), opts)
	if err != nil {
		slog.ErrorContext(r.Context(), "list submissions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}

	// Return [] not null for empty lists
	if subs == nil {
		subs = []*model.Submission{}
	}
	writeJSON(w, http.StatusOK, adminListResponse{Submissions: subs})
}

// AdminGet handles GET /api/admin/contacts/{id}.
func (h *ContactHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	sub, err := h.contactService.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "get submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
