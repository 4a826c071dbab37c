package middleware

import (
	"errors"
	"fmt"
	"strings"

	pkgAuth "toppan-service/pkg/auth"
	appErr "toppan-service/pkg/errors"
	"toppan-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextSessionIDKey = "sessionID"
	ContextNameKey      = "playerName"
)

// SessionRequired admits requests carrying a valid session ticket, either as
// a bearer header or a token query parameter.
func SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractToken(c)
		if err != nil {
			response.FromError(c, fmt.Errorf("%w: %v", appErr.ErrUnauthorized, err))
			c.Abort()
			return
		}

		claims, err := pkgAuth.ParseSessionToken(token)
		if err != nil {
			response.FromError(c, appErr.ErrInvalidToken)
			c.Abort()
			return
		}

		c.Set(ContextSessionIDKey, claims.SessionID)
		c.Set(ContextNameKey, claims.Name)
		c.Next()
	}
}

// SessionID returns the session admitted by SessionRequired.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionIDKey)
}

// PlayerName returns the display name carried by the session ticket.
func PlayerName(c *gin.Context) string {
	return c.GetString(ContextNameKey)
}

func ExtractToken(c *gin.Context) (string, error) {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token, nil
	}
	return extractBearerToken(c.GetHeader("Authorization"))
}

func extractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
