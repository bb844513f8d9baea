package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-store/internal/domain/auth"
	"github.com/xenking/kart-store/pkg/httpmiddleware"
)

// APIKeyHeader is the request header carrying the client API key.
const APIKeyHeader = "api_key"

// RequireAPIKey returns a middleware that rejects requests without a valid
// API key with 401 Unauthorized.
func RequireAPIKey(a *auth.Authenticator) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				key = r.Header.Get("X-API-Key")
			}

			info, err := a.Authenticate(r.Context(), key)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				zctx.From(r.Context()).Error("Authenticate API key", zap.Error(err))
				httpmiddleware.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				return
			}

			lg := zctx.From(r.Context()).With(zap.String("api_key_id", info.ID))
			ctx := zctx.Base(r.Context(), lg)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
