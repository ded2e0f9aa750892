package middleware

import (
	"net/http"
	apperrors "payrouter/pkg/errors"
	httpx "payrouter/pkg/http"
)

// MaxRequestSize rejects bodies larger than limit bytes. A declared length over the
// limit is refused up front; otherwise reads past the limit fail with *http.MaxBytesError.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				httpx.WriteError(w, apperrors.Business(apperrors.CodeInvalidInput,
					"Request body is too large", http.StatusRequestEntityTooLarge))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
