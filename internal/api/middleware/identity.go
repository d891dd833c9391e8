package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/infrastructure/observability"
)

// Identity headers set by the authenticating gateway
const (
	HeaderUserRole = "X-User-Role"
	HeaderUserID   = "X-User-ID"
)

type actorKey struct{}

// IdentityMiddleware reads the caller's role and user id. Requests without
// identity pass through anonymous; handlers that need an actor refuse them.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawRole := r.Header.Get(HeaderUserRole)
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if rawRole == "" && userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		role, err := entities.ParseRole(rawRole)
		if err != nil || userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "both " + HeaderUserRole + " and " + HeaderUserID + " must identify a known role and user",
				"type":  "UNAUTHORIZED",
			})
			return
		}

		ctx := WithActor(r.Context(), entities.Actor{Role: role, UserID: userID})
		next.ServeHTTP(w, r.WithContext(observability.WithActor(ctx, string(role), userID)))
	})
}

// WithActor stores the caller on ctx
func WithActor(ctx context.Context, actor entities.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller stored by IdentityMiddleware
func ActorFromContext(ctx context.Context) (entities.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(entities.Actor)
	return actor, ok
}
