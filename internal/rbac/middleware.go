package rbac

import (
	"log/slog"
	"net/http"

	"github.com/cedarline-erp/cedarline-erp/internal/platform/httpx"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

// Middleware wires policy checks into HTTP routing.
type Middleware struct {
	Policy PolicyService
	Logger *slog.Logger
}

// Require ensures the current actor holds the permission before the request
// proceeds.
func (m Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := shared.ActorFromContext(r.Context())
			if actorID == 0 {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			allowed, err := m.Policy.Allowed(r.Context(), actorID, perm)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac check", slog.Any("error", err), slog.String("permission", string(perm)))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !allowed {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
