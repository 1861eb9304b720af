package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"budget-tracker/internal/apperr"
	"budget-tracker/internal/auth"
	"budget-tracker/internal/entries"
	"budget-tracker/internal/models"
	"budget-tracker/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Context key type to avoid collisions.
type contextKey string

// IdentityContextKey is the context key for the authenticated identity.
const IdentityContextKey contextKey = "identity"

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var errMissingToken = apperr.New(apperr.ErrUnauthorized, "missing bearer token")

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth    *auth.Service
	entries *entries.Service
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewHandlers creates a new Handlers instance. metrics may be nil.
func NewHandlers(authSvc *auth.Service, entrySvc *entries.Service, logger *slog.Logger, metrics *observability.Metrics) *Handlers {
	return &Handlers{auth: authSvc, entries: entrySvc, logger: logger, metrics: metrics}
}

// GetIdentityFromContext retrieves the authenticated identity from request context.
func GetIdentityFromContext(r *http.Request) *auth.Identity {
	if id, ok := r.Context().Value(IdentityContextKey).(*auth.Identity); ok {
		return id
	}
	return nil
}

// AuthMiddleware rejects requests without a valid bearer token with 401.
// On success the verified identity is stored in the request context.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.respondError(w, r, errMissingToken)
			return
		}

		id, err := h.auth.Verify(token)
		if err != nil {
			h.respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// TokenResponse is returned by signup and login.
type TokenResponse struct {
	Token string `json:"token"`
}

// MessageResponse is returned by operations without a resource to show.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health answers the root path so load balancers and humans can tell the API is up.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Budget Tracker API is running..."))
}

// Signup registers a user and returns its first token.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		h.respondError(w, r, err)
		return
	}

	token, user, err := h.auth.Signup(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.metrics.AuthAttempt("signup", outcome(err))
		h.respondError(w, r, err)
		return
	}
	h.metrics.AuthAttempt("signup", "success")
	h.logger.Info("user signed up", slog.String("user_id", user.ID))

	writeJSON(w, http.StatusCreated, TokenResponse{Token: token})
}

// Login exchanges credentials for a token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		h.respondError(w, r, err)
		return
	}

	token, _, err := h.auth.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.metrics.AuthAttempt("login", outcome(err))
		h.respondError(w, r, err)
		return
	}
	h.metrics.AuthAttempt("login", "success")

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// ListEntries returns the caller's entries.
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	id := GetIdentityFromContext(r)

	list, err := h.entries.List(r.Context(), id.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateEntry stores a new entry owned by the caller.
func (h *Handlers) CreateEntry(w http.ResponseWriter, r *http.Request) {
	id := GetIdentityFromContext(r)

	var in models.EntryInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.respondError(w, r, err)
		return
	}

	entry, err := h.entries.Create(r.Context(), id.UserID, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.metrics.EntryOp("create")
	writeJSON(w, http.StatusCreated, entry)
}

// UpdateEntry applies a partial update to one of the caller's entries.
func (h *Handlers) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := GetIdentityFromContext(r)

	var patch models.EntryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.respondError(w, r, err)
		return
	}

	entry, err := h.entries.Update(r.Context(), id.UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.metrics.EntryOp("update")
	writeJSON(w, http.StatusOK, entry)
}

// DeleteEntry removes one of the caller's entries.
func (h *Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := GetIdentityFromContext(r)

	if err := h.entries.Delete(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.metrics.EntryOp("delete")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Deleted"})
}

// respondError maps domain errors to HTTP status codes. Unexpected errors
// are logged and answered with a generic message.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeJSON(w, status, ErrorResponse{Error: "internal server error"})
		return
	}

	msg := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func outcome(err error) string {
	if errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrUnauthorized) {
		return "rejected"
	}
	return "error"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, models.ErrInvalidAmount):
			return apperr.Validation("amount must be a number")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return apperr.Validation("%s has the wrong type", typeErr.Field)
		default:
			return apperr.Validation("invalid JSON body")
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
