package httpapi

import (
	"net/http"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"

	"go.uber.org/zap"
)

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindUnauthorized, domain.KindInvalidCredentials:
		return http.StatusUnauthorized
	case domain.KindForbidden, domain.KindNotPaired:
		return http.StatusForbidden
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindContention, domain.KindStorage:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err as a Fail envelope. Internal causes are logged,
// only the public message reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get("X-Request-ID")),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, Fail(domain.PublicMessage(err)))
}
