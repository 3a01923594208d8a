package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dom/institutional-site/internal/api/middleware"
	"github.com/dom/institutional-site/internal/api/respond"
	"github.com/dom/institutional-site/internal/auth"
	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/logs"
	"github.com/dom/institutional-site/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxJSONBody = 1 << 20

// writeError maps service and domain errors onto status codes. Anything it
// does not recognize is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := middleware.LoggerFrom(r.Context())

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		respond.Error(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, auth.ErrPasswordTooLong):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrUnauthenticated):
		respond.Error(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrForbidden):
		respond.Error(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrWrongCurrentPassword):
		respond.Error(w, http.StatusForbidden, "current password is incorrect")
	case errors.Is(err, service.ErrInvalidResetToken):
		respond.Error(w, http.StatusBadRequest, "invalid or expired token")
	case errors.Is(err, service.ErrUsernameExists):
		respond.Error(w, http.StatusConflict, "username already exists")
	case errors.Is(err, service.ErrEmailExists):
		respond.Error(w, http.StatusConflict, "email already exists")
	case errors.Is(err, domain.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, service.ErrUserNotFound):
		respond.Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrTestimonialNotFound),
		errors.Is(err, service.ErrCommemorativeDateNotFound),
		errors.Is(err, service.ErrTimelinePostNotFound),
		errors.Is(err, domain.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrMailerUnavailable):
		respond.Error(w, http.StatusServiceUnavailable, "email delivery is not available")
	case errors.Is(err, auth.ErrMissingSecret):
		logs.Configuration(log).WithError(err).Error("token service is not configured")
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	case errors.Is(err, context.DeadlineExceeded):
		log.WithError(err).Error("upstream call timed out")
		// The Timeout middleware writes the 504 once the request deadline has passed.
		if r.Context().Err() == nil {
			respond.Error(w, http.StatusGatewayTimeout, "upstream timeout")
		}
	default:
		log.WithError(err).Error("request failed")
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("", "request body is required")
		}
		return domain.NewValidationError("", "invalid request body")
	}
	return nil
}

func idParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("id", "must be a valid UUID")
	}
	return id, nil
}

// pageFromQuery reads page/limit, falling back to defaults for missing or
// non-numeric values.
func pageFromQuery(r *http.Request) domain.Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return domain.NewPage(number, limit)
}
