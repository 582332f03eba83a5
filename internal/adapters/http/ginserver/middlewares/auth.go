package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vshulcz/Telemetra/internal/services/audit"
)

var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// BearerAuth requires an HMAC-signed JWT in the Authorization header.
// The token subject is stored in the request context for auditing.
// An empty secret disables the check.
func BearerAuth(secret string) gin.HandlerFunc {
	if strings.TrimSpace(secret) == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods(hmacMethods))

	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := parser.Parse(raw, func(*jwt.Token) (any, error) { return key, nil })
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			c.Request = c.Request.WithContext(audit.WithSubject(c.Request.Context(), sub))
		}
		c.Next()
	}
}

func bearerToken(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
