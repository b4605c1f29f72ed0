// Package auth is the thin collaborator boundary in front of the media
// pipeline: a single admin login that issues the JWTs the protected media
// routes require. User management lives outside this service.
package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	jwtsvc "portfolio/internal/pkg/jwt"
	"portfolio/internal/pkg/response"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Handler struct {
	jwt          *jwtsvc.Service
	adminEmail   string
	passwordHash string // bcrypt
}

func NewHandler(jwt *jwtsvc.Service, adminEmail, passwordHash string) *Handler {
	return &Handler{jwt: jwt, adminEmail: adminEmail, passwordHash: passwordHash}
}

// Login godoc
// @Summary Admin login
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400,401 {object} map[string]interface{}
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "email and password are required")
		return
	}

	if h.adminEmail == "" || req.Email != h.adminEmail ||
		bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)) != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
		return
	}

	token, err := h.jwt.GenerateToken(req.Email, "admin")
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "TOKEN_FAILED", "failed to issue token")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"token": token})
}
