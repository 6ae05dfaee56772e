package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "idproxy/pkg/domain-errors"
	"idproxy/pkg/platform/httputil"
	"idproxy/pkg/requestcontext"
)

// APIKeyHeader carries the partner API key.
const APIKeyHeader = "x-idem-api-key"

// RequireAPIKey rejects requests whose x-idem-api-key is not in keys
// (key -> partner label). An empty key set disables the check.
func RequireAPIKey(keys map[string]string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			presented := r.Header.Get(APIKeyHeader)
			if partner, ok := matchKey(keys, presented); ok {
				next.ServeHTTP(w, r.WithContext(requestcontext.WithPartner(ctx, partner)))
				return
			}

			logger.WarnContext(ctx, "unauthorized access - invalid api key",
				"request_id", requestcontext.RequestID(ctx),
				"key_present", presented != "",
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid API key"))
		})
	}
}

func matchKey(keys map[string]string, presented string) (string, bool) {
	if presented == "" {
		return "", false
	}
	var (
		partner string
		found   bool
	)
	for key, label := range keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(presented)) == 1 {
			partner, found = label, true
		}
	}
	return partner, found
}
