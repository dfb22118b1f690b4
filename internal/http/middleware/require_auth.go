package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/zealits/bulkpayout-sub001/internal/shared/apperr"
)

const CtxKeySubject = "auth_subject"

// RequireAuth validates a Bearer token signed with the shared HMAC secret and
// stores its subject claim on the context. Tokens are issued out of band.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			Fail(c, apperr.UnauthorizedErr("Authentication required."))
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			Fail(c, apperr.UnauthorizedErr("Invalid or expired token."))
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, _ := claims["sub"].(string); sub != "" {
				c.Set(CtxKeySubject, sub)
			}
		}

		c.Next()
	}
}

func CurrentSubject(c *gin.Context) string {
	if v, ok := c.Get(CtxKeySubject); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
