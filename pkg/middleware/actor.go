package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

// Headers set by the upstream gateway after it authenticates the caller.
const (
	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"
)

// RequireActor puts the gateway-asserted actor on the request context.
// Requests without an actor id are rejected, so handlers never run as the system actor.
// A missing role means writer; the system role cannot be asserted over HTTP.
func RequireActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(ActorIDHeader))
		if id == "" {
			reject(w, http.StatusUnauthorized, "unauthorized", "Actor identity required")
			return
		}

		role := models.RoleWriter
		if raw := strings.TrimSpace(r.Header.Get(ActorRoleHeader)); raw != "" {
			role = models.ActorRole(strings.ToLower(raw))
		}
		if !role.IsValid() || role == models.RoleSystem {
			reject(w, http.StatusForbidden, "invalid_role", "Unrecognized actor role")
			return
		}

		ctx := models.WithActor(r.Context(), models.Actor{ID: id, Role: role})
		next(w, r.WithContext(ctx))
	}
}

func reject(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
