package http

import (
	"net/http"

	"github.com/imelapp/auth-server/internal/common/constants"
	"github.com/imelapp/auth-server/internal/common/httpmetrics"
	"github.com/imelapp/auth-server/internal/common/logger"
)

// BuildBaseHandler wires the ambient middleware stack around a handler:
// security headers, CORS, panic recovery, trace IDs, request size limits
// and request metrics.
func BuildBaseHandler(allowedOrigin string, log *logger.Logger, handler http.Handler) http.Handler {
	recovery := RecoveryMiddleware(log)
	cors := CORSMiddleware(allowedOrigin)
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)

	return SecurityHeadersMiddleware(cors(recovery(TraceIDMiddleware(maxRequestSize(httpmetrics.Wrap(handler))))))
}
