package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"cipherid/internal/domain"

	"github.com/gin-gonic/gin"
)

// requireCaller resolves the calling principal. In "none" mode the caller
// names itself through the X-Caller header (development only); in "jwt"
// mode the principal is the bearer token's subject.
func (s *Server) requireCaller(c *gin.Context) (domain.Principal, bool) {
	if s.initErr != nil {
		writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
		return domain.Principal{}, false
	}
	if s.cfg.AuthMode == "" || s.cfg.AuthMode == "none" {
		subject := strings.TrimSpace(c.GetHeader("X-Caller"))
		if subject == "" {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
			return domain.Principal{}, false
		}
		return domain.Principal{Subject: subject}, true
	}

	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return domain.Principal{}, false
	}
	principal, err := s.authenticator.Authenticate(c.Request.Context(), token)
	if err != nil {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
		return domain.Principal{}, false
	}
	return principal, true
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key not configured")
		return false
	}
	key := strings.TrimSpace(c.GetHeader("X-Admin-Key"))
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	return true
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}
