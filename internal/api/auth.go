package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Aviral2610/Lead-gen/internal/pkg/httputil"
)

// APIKeyHeader carries an API key for callers that cannot send a bearer token.
const APIKeyHeader = "X-API-Key"

// requireAPIKey rejects requests that present none of keys, either as
// "Authorization: Bearer <key>" or in the X-API-Key header. With no keys
// configured every request is rejected.
func requireAPIKey(keys []string) func(http.Handler) http.Handler {
	digests := make([][32]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keyAccepted(digests, presentedKey(r)) {
				log.Warn("rejected unauthenticated request",
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
				)
				httputil.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}

// keyAccepted checks key against every digest in constant time.
func keyAccepted(digests [][32]byte, key string) bool {
	if key == "" {
		return false
	}
	got := sha256.Sum256([]byte(key))
	ok := 0
	for _, d := range digests {
		ok |= subtle.ConstantTimeCompare(got[:], d[:])
	}
	return ok == 1
}
