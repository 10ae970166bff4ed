package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/KishoreAkashYS/chargebee-cpf/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the JWT payload for an operator session. There are no
// per-user accounts: a correct PIN grants a single authenticated flag.
type SessionClaims struct {
	Authenticated bool `json:"authenticated"`
	jwt.RegisteredClaims
}

// GenerateSessionToken issues a session token after a successful PIN login.
func GenerateSessionToken(cfg *config.AuthConfig) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := SessionClaims{
		Authenticated: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseSessionToken validates a session token and reports whether it carries
// an authenticated session.
func ParseSessionToken(tokenString string, cfg *config.AuthConfig) (bool, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return false, err
	}
	if !token.Valid || !claims.Authenticated {
		return false, errors.New("session not authenticated")
	}
	return true, nil
}

// SessionRequired rejects requests without a valid session token.
func SessionRequired(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		ok, err := ParseSessionToken(tokenString, cfg)
		if err != nil || !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractBearerToken pulls the token out of "Authorization: Bearer <token>".
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
