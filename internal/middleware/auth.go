package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kkin1995/bmtc-transit-app/pkg/response"
)

// Auth guards write endpoints with a Bearer credential. Two credential forms
// are accepted: the static API key handed to trusted clients, and an HS256
// JWT signed with the HMAC secret when one is configured.
func Auth(apiKey, hmacSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Error(c, http.StatusUnauthorized, "unauthorized", "missing bearer credential")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1 {
			c.Next()
			return
		}

		if hmacSecret != "" && validJWT(token, hmacSecret) {
			c.Next()
			return
		}

		response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid bearer credential")
		c.Abort()
	}
}

func validJWT(token, secret string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	return err == nil && parsed.Valid
}
