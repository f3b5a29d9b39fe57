package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/constants"
)

// Provide stores value in every request context under key.
func Provide(key constants.ContextKey, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, value)))
		})
	}
}

// ProvideActor reads the authenticated user id set by the upstream auth proxy.
// Requests without a well-formed id continue anonymously; handlers that need
// an actor reject them.
func ProvideActor(header string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(header); raw != "" {
				if actorID, err := uuid.Parse(raw); err == nil {
					r = r.WithContext(composables.WithActor(r.Context(), actorID))
				} else {
					composables.UseLogger(r.Context()).WithField("header", header).Debug("ignoring malformed actor id")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
