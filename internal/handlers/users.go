package handlers

import (
	"fmt"
	"net/http"

	"eventplatform/internal/logger"
	"eventplatform/internal/middleware"
	"eventplatform/internal/models"
	"eventplatform/internal/service"

	"github.com/gin-gonic/gin"
)

// Users handlers

// LoginInfo - GET /usuarios/login/
func (h *Handlers) LoginInfo(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)
	c.JSON(http.StatusOK, gin.H{
		"autenticado": p.IsAuthenticated(),
		"username":    p.Username,
		"next":        safeNext(c.Query("next")),
	})
}

// Login - POST /usuarios/login/
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, session, err := h.services.Accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err, "Failed to log in")
		return
	}

	h.setSessionCookie(c, session)
	c.JSON(http.StatusOK, models.AuthResponse{
		Message: fmt.Sprintf("¡Bienvenido %s!", user.Username),
		User:    user,
		Next:    safeNext(c.Query("next")),
	})
}

// Logout - POST /usuarios/logout/
func (h *Handlers) Logout(c *gin.Context) {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.services.Accounts.Logout(c.Request.Context(), token); err != nil {
			logger.WithContext(c.Request.Context()).Warn("Failed to delete session", "error", err)
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, models.MessageResponse{Message: service.MsgLoggedOut})
}

// Signup - POST /usuarios/registro/
// Создание аккаунта с назначением группы по типу пользователя
func (h *Handlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, session, err := h.services.Accounts.Signup(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to sign up")
		return
	}

	group := ""
	if len(user.Groups) > 0 {
		group = user.Groups[0]
	}

	h.setSessionCookie(c, session)
	c.JSON(http.StatusCreated, models.AuthResponse{
		Message: fmt.Sprintf(service.MsgSignupFormat, user.Username, group),
		User:    user,
		Next:    "/",
	})
}

// Profile - GET /usuarios/perfil/
func (h *Handlers) Profile(c *gin.Context) {
	response, err := h.services.Accounts.Profile(c.Request.Context(), middleware.PrincipalFromContext(c))
	if err != nil {
		h.respondError(c, err, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, response)
}

// AccessDenied - GET /usuarios/acceso-denegado/
func (h *Handlers) AccessDenied(c *gin.Context) {
	c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   service.MsgAccessDeniedTitle,
		Message: service.MsgAccessDenied,
	})
}

func (h *Handlers) setSessionCookie(c *gin.Context, session *models.Session) {
	maxAge := int(h.cookie.TTL.Seconds())
	if maxAge <= 0 {
		maxAge = int(session.ExpiresAt.Sub(session.CreatedAt).Seconds())
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, session.Token, maxAge, "/", "", h.cookie.Secure, true)
}
