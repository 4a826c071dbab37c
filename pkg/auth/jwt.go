package auth

import (
	"strings"
	"time"

	"toppan-service/internal/config"
	appErr "toppan-service/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

const ScopeSession = "session"

// Claims identify a player session. SessionID stays stable across
// reconnects made with the same ticket.
type Claims struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

func GenerateSessionToken(sessionID, name string) (string, error) {
	duration := time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour
	claims := Claims{
		SessionID: sessionID,
		Name:      strings.TrimSpace(name),
		Scope:     ScopeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.GlobalConfig.JWT.Secret))
}

func ParseSessionToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.GlobalConfig.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Scope != ScopeSession || claims.SessionID == "" {
		return nil, appErr.ErrInvalidToken
	}
	return claims, nil
}
