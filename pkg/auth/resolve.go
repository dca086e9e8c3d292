package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"pairchat/pkg/logger"
)

func validateIdentity(id string) (bool, string) {
	if id == "" {
		return false, "caller identity required"
	}
	if len(id) > 128 {
		return false, "caller identity too long"
	}
	return true, ""
}

// ResolveCaller is the single canonical resolver handlers should call. It
// prefers the signature-verified identity in the request context; a
// conflicting X-User-ID header is rejected with 403. When no signature is
// present, backend/admin roles may supply the identity via the header.
// Everything else yields 401. The returned status is 0 on success.
func ResolveCaller(r *http.Request) (string, int, string) {
	if id := CallerFromContext(r.Context()); id != "" {
		if h := strings.TrimSpace(r.Header.Get("X-User-ID")); h != "" && h != id {
			logger.Warn("caller_mismatch_signature_header", zap.String("signature", id), zap.String("header", h), zap.String("path", r.URL.Path))
			return "", http.StatusForbidden, "identity mismatch between signature and header"
		}
		return id, 0, ""
	}

	role := r.Header.Get("X-Role-Name")
	if role == "backend" || role == "admin" {
		if h := strings.TrimSpace(r.Header.Get("X-User-ID")); h != "" {
			if ok, msg := validateIdentity(h); !ok {
				return "", http.StatusBadRequest, msg
			}
			logger.Debug("caller_from_header_backend", zap.String("user", h), zap.String("path", r.URL.Path))
			return h, 0, ""
		}
		return "", http.StatusBadRequest, "caller identity required for backend requests"
	}

	return "", http.StatusUnauthorized, "missing or invalid caller signature"
}
