package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"eventplatform/internal/middleware"
	"eventplatform/internal/models"
	"eventplatform/internal/service"

	"github.com/gin-gonic/gin"
)

// Events handlers

// ListEvents - GET /
// Список видимых событий с поиском, фильтром по типу и пагинацией
func (h *Handlers) ListEvents(c *gin.Context) {
	query := service.ListQuery{
		Search: strings.TrimSpace(c.Query("search")),
	}

	if tipo := c.Query("tipo"); tipo != "" {
		// нечисловой тип игнорируется, как пустой фильтр
		if id, err := strconv.ParseInt(tipo, 10, 64); err == nil && id > 0 {
			query.EventTypeID = id
		}
	}

	switch page := c.DefaultQuery("page", "1"); page {
	case "last":
		query.Page = service.LastPage
	default:
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "no_encontrado",
				Message: "Página inválida.",
			})
			return
		}
		query.Page = n
	}

	response, err := h.services.Events.List(c.Request.Context(), middleware.PrincipalFromContext(c), query)
	if err != nil {
		h.respondError(c, err, "Failed to list events")
		return
	}

	c.JSON(http.StatusOK, response)
}

// EventDetail - GET /:id/
func (h *Handlers) EventDetail(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	response, err := h.services.Events.Detail(c.Request.Context(), middleware.PrincipalFromContext(c), id)
	if err != nil {
		h.respondError(c, err, "Failed to get event")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CreateEventForm - GET /crear/
// Справочники для формы создания
func (h *Handlers) CreateEventForm(c *gin.Context) {
	response, err := h.services.Events.FormOptions(c.Request.Context(), middleware.PrincipalFromContext(c))
	if err != nil {
		h.respondError(c, err, "Failed to load event form")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CreateEvent - POST /crear/
func (h *Handlers) CreateEvent(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)

	// право проверяется до разбора формы
	if _, err := h.services.Events.FormOptions(c.Request.Context(), p); err != nil {
		h.respondError(c, err, "Failed to create event")
		return
	}

	var req models.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	event, err := h.services.Events.Create(c.Request.Context(), p, &req)
	if err != nil {
		h.respondError(c, err, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Evento creado exitosamente.",
		"evento":  event,
	})
}

// EditEventForm - GET /:id/editar/
func (h *Handlers) EditEventForm(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	response, err := h.services.Events.EditForm(c.Request.Context(), middleware.PrincipalFromContext(c), id)
	if err != nil {
		h.respondError(c, err, "Failed to load event form")
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateEvent - POST /:id/editar/
func (h *Handlers) UpdateEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	p := middleware.PrincipalFromContext(c)

	if _, err := h.services.Events.EditForm(c.Request.Context(), p, id); err != nil {
		h.respondError(c, err, "Failed to update event")
		return
	}

	var req models.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	event, err := h.services.Events.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		h.respondError(c, err, "Failed to update event")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Evento actualizado exitosamente.",
		"evento":  event,
	})
}

// DeleteEventForm - GET /:id/eliminar/
// Подтверждение удаления
func (h *Handlers) DeleteEventForm(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	event, err := h.services.Events.DeleteCheck(c.Request.Context(), middleware.PrincipalFromContext(c), id)
	if err != nil {
		h.respondError(c, err, "Failed to load event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"evento": event})
}

// DeleteEvent - POST /:id/eliminar/
func (h *Handlers) DeleteEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	event, err := h.services.Events.Delete(c.Request.Context(), middleware.PrincipalFromContext(c), id)
	if err != nil {
		h.respondError(c, err, "Failed to delete event")
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("El evento \"%s\" ha sido eliminado exitosamente.", event.Title),
	})
}

// MyEvents - GET /mis-eventos/
func (h *Handlers) MyEvents(c *gin.Context) {
	response, err := h.services.Events.MyEvents(c.Request.Context(), middleware.PrincipalFromContext(c))
	if err != nil {
		h.respondError(c, err, "Failed to list own events")
		return
	}

	c.JSON(http.StatusOK, response)
}
