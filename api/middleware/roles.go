package middleware

import (
	"net/http"

	"github.com/kabidey/privity-sub003/api/responses"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
	"github.com/kabidey/privity-sub003/pkg/logger"
)

// RequireCapability rejects callers missing the given capability before the
// handler runs. Services re-check on their own; this keeps whole route
// groups dark for unprivileged tokens.
func RequireCapability(capability enums.Capability, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CallerFromContext(r.Context()).Can(capability) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "capability required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
