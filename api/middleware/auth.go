package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/harborfin/contactdesk-backend/api/responses"
	"github.com/harborfin/contactdesk-backend/pkg/config"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

const internalKeyHeader = "X-Internal-Key"

// InternalOrAdmin gates the admin surface: a request must present either
// the shared internal key or the admin role header.
func InternalOrAdmin(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(internalKeyHeader); key != "" {
				if cfg.InternalKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cfg.InternalKey)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "invalid internal key"))
				return
			}

			if role := r.Header.Get(cfg.AdminRoleHeader); role != "" {
				if role == cfg.AdminRoleValue {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}

			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		})
	}
}
