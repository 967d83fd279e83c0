package handlers

import (
	"net/http"

	"eventplatform/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterForEvent - POST /:id/registrarse/
// Регистрация текущего пользователя на событие
func (h *Handlers) RegisterForEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	response, err := h.services.Registrations.Register(c.Request.Context(), middleware.PrincipalFromContext(c), id)
	if err != nil {
		h.respondError(c, err, "Failed to register for event")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CancelRegistration - POST /:id/cancelar-registro/
func (h *Handlers) CancelRegistration(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	response, err := h.services.Registrations.Cancel(c.Request.Context(), middleware.PrincipalFromContext(c), id)
	if err != nil {
		h.respondError(c, err, "Failed to cancel registration")
		return
	}

	c.JSON(http.StatusOK, response)
}
