package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventplatform/internal/middleware"
	"eventplatform/internal/service"

	"github.com/gin-gonic/gin"
)

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name     string
	TTL      time.Duration
	Secure   bool
	LoginURL string
}

type Handlers struct {
	services *service.Services
	cookie   CookieConfig
}

func NewHandlers(services *service.Services, cookie CookieConfig) *Handlers {
	if cookie.Name == "" {
		cookie.Name = "sessionid"
	}
	if cookie.LoginURL == "" {
		cookie.LoginURL = "/usuarios/login/"
	}
	registerValidations()

	return &Handlers{
		services: services,
		cookie:   cookie,
	}
}

// Register mounts the event and account routes on r
func (h *Handlers) Register(r gin.IRouter) {
	r.Use(middleware.Session(h.services.Accounts, h.cookie.Name))
	login := middleware.RequireLogin(h.cookie.LoginURL)

	// Events
	r.GET("/", h.ListEvents)
	r.GET("/crear/", login, h.CreateEventForm)
	r.POST("/crear/", login, h.CreateEvent)
	r.GET("/mis-eventos/", login, h.MyEvents)
	r.GET("/:id/", h.EventDetail)
	r.GET("/:id/editar/", login, h.EditEventForm)
	r.POST("/:id/editar/", login, h.UpdateEvent)
	r.GET("/:id/eliminar/", login, h.DeleteEventForm)
	r.POST("/:id/eliminar/", login, h.DeleteEvent)

	// Registrations
	r.POST("/:id/registrarse/", login, h.RegisterForEvent)
	r.POST("/:id/cancelar-registro/", login, h.CancelRegistration)

	// Accounts
	users := r.Group("/usuarios")
	{
		users.GET("/login/", h.LoginInfo)
		users.POST("/login/", h.Login)
		users.POST("/logout/", h.Logout)
		users.POST("/registro/", h.Signup)
		users.GET("/perfil/", login, h.Profile)
		users.GET("/acceso-denegado/", h.AccessDenied)
	}
}

// eventID parses the :id path parameter; malformed ids are answered with 404
func eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, notFoundResponse)
		return 0, false
	}
	return id, true
}

// safeNext keeps redirects on this site
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
