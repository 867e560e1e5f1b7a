package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/auth"
	"github.com/GTDGit/lumina_api/internal/config"
	"github.com/GTDGit/lumina_api/internal/middleware"
	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/service"
	"github.com/GTDGit/lumina_api/internal/utils"
)

// AuthAPI is the account surface used by AuthHandler.
type AuthAPI interface {
	Register(ctx context.Context, in service.Credentials) (*service.AuthResult, error)
	Login(ctx context.Context, in service.Credentials) (*service.AuthResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, sc *auth.SessionContext) (*models.User, error)
}

// AuthHandler serves registration, login and the current identity.
type AuthHandler struct {
	auth    AuthAPI
	session *config.SessionConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(a AuthAPI, session *config.SessionConfig) *AuthHandler {
	return &AuthHandler{auth: a, session: session}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	res, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setCookie(c, res.Session)
	log.Info().Str("user_id", res.User.ID).Msg("User registered")
	utils.Success(c, http.StatusCreated, "Registration successful", res)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		log.Warn().Str("username", req.Username).Str("ip", c.ClientIP()).Msg("Login failed")
		respondError(c, err)
		return
	}

	h.setCookie(c, res.Session)
	utils.Success(c, http.StatusOK, "Login successful", res)
}

// Logout handles POST /api/auth/logout. Anonymous callers succeed too.
func (h *AuthHandler) Logout(c *gin.Context) {
	if sc := middleware.GetSession(c); sc != nil {
		if err := h.auth.Logout(c.Request.Context(), sc.Token); err != nil {
			respondError(c, err)
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, "", -1, "/", "", h.session.CookieSecure, true)
	utils.Success(c, http.StatusOK, "Logged out", nil)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Current user", user)
}

func (h *AuthHandler) setCookie(c *gin.Context, sess *models.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, sess.Token, int(h.session.TTL.Seconds()), "/", "", h.session.CookieSecure, true)
}
