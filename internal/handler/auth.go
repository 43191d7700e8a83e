package handler

import (
	"context"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// IdentityHeader carries the caller's user ID claim, set by the upstream
// identity layer. The claim must parse as a UUID; malformed claims are
// logged and rejected, never rewritten.
const IdentityHeader = "X-User-Id"

type contextKey int

const userIDKey contextKey = iota

// Authenticate resolves the caller identity or ends the request with 401.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claim := r.Header.Get(IdentityHeader)
		if claim == "" {
			respondWithProblem(w, r, http.StatusUnauthorized, "missing identity claim")
			return
		}

		userID, err := uuid.FromString(claim)
		if err != nil {
			log.Warn().Str("claim", claim).Str("path", r.URL.Path).Msg("Rejected malformed identity claim")
			respondWithProblem(w, r, http.StatusUnauthorized, "identity claim is not a valid UUID")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}
