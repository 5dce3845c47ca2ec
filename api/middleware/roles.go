package middleware

import (
	"net/http"

	"github.com/librarium/librarium-backend/api/responses"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/enums"
	"github.com/librarium/librarium-backend/pkg/logger"
)

// RequirePermission consults the role policy for one resource/action
// pair before the handler runs. Ownership checks stay in the services;
// this only answers whether the role may touch the surface at all.
func RequirePermission(logg *logger.Logger, resource authz.Resource, action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := authz.Actor{Role: enums.Role(RoleFromContext(r.Context()))}
			if err := authz.Require(actor, resource, action); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
