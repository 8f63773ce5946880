package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"clipforge/internal/domain"
	"clipforge/internal/middleware"
	"clipforge/internal/pipeline"
	"clipforge/internal/storage"
)

// ProcessingService launches enhancement jobs and answers status polls.
// Satisfied by *pipeline.Service.
type ProcessingService interface {
	RequestProcessing(ctx context.Context, videoID, requesterID string) (*pipeline.Ack, error)
	GetStatus(ctx context.Context, videoID, requesterID string) (*pipeline.Status, error)
}

type App struct {
	Logger     zerolog.Logger
	Users      domain.UserRepository
	Projects   domain.ProjectRepository
	Videos     domain.VideoRepository
	Processing ProcessingService
	Blobs      *storage.FileStore
	JWTSecret  string
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, map[string]any{"error": errorBody{Code: kind, Message: msg}})
}

// domainError maps sentinel domain errors onto HTTP responses. Anything
// unrecognized is logged and reported as an internal error.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "you do not have access to this resource")
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", "resource is busy, try again later")
	case errors.Is(err, domain.ErrDuplicateEmail):
		a.error(w, http.StatusConflict, "conflict", "email already registered")
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
