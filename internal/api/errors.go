package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/unsaid-app/attune/internal/attachment"
	"github.com/unsaid-app/attune/internal/store"
)

// ValidationError reports which request fields were rejected. Never retried
// internally; always surfaced as a 400.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// writeError maps the error taxonomy onto HTTP statuses: validation and
// rejected observations are 4xx, transient store failures are 503 so the
// caller knows a retry is reasonable, everything else is 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Fields: ve.Fields})
	case errors.Is(err, attachment.ErrInvalidObservation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_observation"})
	case errors.Is(err, store.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "store_unavailable"})
	default:
		s.deps.Logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
	}
}

type ctxKey string

const userIDKey ctxKey = "userID"

// requireUserID pulls the caller identity set by the app gateway. Auth
// itself happens upstream; here an absent header is a validation failure.
func requireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Fields: []string{"X-User-ID"}})
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
