package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/logger"
	"eventplatform/internal/middleware"
	"eventplatform/internal/models"
	"eventplatform/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const msgFormErrors = "Hubo errores en el formulario. Por favor, revisa los datos ingresados."

var notFoundResponse = models.ErrorResponse{
	Error:   "no_encontrado",
	Message: "El evento no existe o no tienes permisos para verlo",
}

var validationsOnce sync.Once

// registerValidations makes gin report json field names and adds the username rule
func registerValidations() {
	validationsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})

		v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return service.ValidUsername(fl.Field().String())
		})
	})
}

// fieldMessage translates a validator tag into the form message shown to users
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio."
	case "max":
		return "Asegúrese de que este valor tenga como máximo " + fe.Param() + " caracteres."
	case "email":
		return "Introduzca una dirección de correo electrónico válida."
	case "oneof":
		return "Seleccione una opción válida."
	case "username":
		return "Introduzca un nombre de usuario válido. Solo letras, números y @/./+/-/_ permitidos."
	default:
		return "Valor no válido."
	}
}

// bindError answers a request whose body could not be bound
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			if _, exists := fields[fe.Field()]; !exists {
				fields[fe.Field()] = fieldMessage(fe)
			}
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validacion",
			Message: msgFormErrors,
			Fields:  fields,
		})
		return
	}

	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "solicitud_invalida",
		Message: msgFormErrors,
		Detail:  err.Error(),
	})
}

// respondError maps service errors onto HTTP responses
func (h *Handlers) respondError(c *gin.Context, err error, op string) {
	if v, ok := apperrors.IsValidation(err); ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validacion",
			Message: msgFormErrors,
			Fields:  v.Fields,
		})
		return
	}

	var forbidden *apperrors.ForbiddenError
	switch {
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error:   "acceso_denegado",
			Message: service.MsgAccessDenied,
			Detail:  forbidden.Reason,
		})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error:   "acceso_denegado",
			Message: service.MsgAccessDenied,
		})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:    "no_autenticado",
			Message:  "Debes iniciar sesión para acceder a esta página.",
			LoginURL: middleware.LoginRedirect(h.cookie.LoginURL, c.Request.URL.RequestURI()),
		})
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "credenciales_invalidas",
			Message: service.MsgInvalidLogin,
		})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, notFoundResponse)
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "capacidad_maxima",
			Message: service.MsgCapacityExceeded,
		})
	case errors.Is(err, apperrors.ErrAlreadyRegistered):
		c.JSON(http.StatusOK, models.RegistrationResponse{
			Status:  "already_registered",
			Message: service.MsgAlreadyRegistered,
		})
	case errors.Is(err, apperrors.ErrRegistrationPending):
		c.JSON(http.StatusOK, models.RegistrationResponse{
			Status:  "pending",
			Message: service.MsgPending,
		})
	default:
		c.Error(err)
		logger.WithContext(c.Request.Context()).Error(op, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Internal server error",
			Message: op,
		})
	}
}
