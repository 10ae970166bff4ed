package handler

import (
	"net/http"
	"strings"

	"github.com/KishoreAkashYS/chargebee-cpf/config"
	"github.com/KishoreAkashYS/chargebee-cpf/middleware"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	config *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type LoginRequest struct {
	PIN string `json:"pin"`
}

type LoginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Login checks the shared operator PIN and issues a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}

	if req.PIN != h.config.Auth.PIN {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Invalid PIN"})
		return
	}

	token, expiresAt, err := middleware.GenerateSessionToken(&h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Logout exists for the client to drop its token: session tokens are
// stateless and simply expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Session reports whether the caller currently holds a valid session.
func (h *AuthHandler) Session(c *gin.Context) {
	authenticated := false

	authHeader := c.GetHeader("Authorization")
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		if ok, err := middleware.ParseSessionToken(parts[1], &h.config.Auth); err == nil && ok {
			authenticated = true
		}
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": authenticated})
}
