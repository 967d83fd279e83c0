package models

import (
	"fmt"
	"strings"
	"time"
)

// Accepted layouts for form timestamps: RFC 3339 and the datetime-local input format
var formTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// FlexibleTime - время, принимающее RFC 3339 и формат datetime-local
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON поддерживает несколько форматов даты
func (ft *FlexibleTime) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "" || str == "null" {
		ft.Time = time.Time{}
		return nil
	}

	for _, layout := range formTimeLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			ft.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid datetime value: %s", str)
}

// MarshalJSON writes RFC 3339
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	if ft.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + ft.Format(time.RFC3339) + `"`), nil
}

// EventRequest - модель для создания и редактирования события
type EventRequest struct {
	Title       string       `json:"title" binding:"required,max=200"`
	Description string       `json:"description" binding:"required"`
	EventTypeID int64        `json:"event_type_id" binding:"required"`
	StartTime   FlexibleTime `json:"start_time"`
	EndTime     FlexibleTime `json:"end_time"`
	Location    string       `json:"location" binding:"required,max=300"`
	MaxCapacity *int         `json:"max_capacity"`
	State       string       `json:"state" binding:"omitempty,oneof=draft published cancelled finished"`
	Visibility  string       `json:"visibility" binding:"omitempty,oneof=public private"`
	Price       string       `json:"price"`
	Image       *string      `json:"image,omitempty"`
}

// EventResponse - событие с вычисляемыми полями
type EventResponse struct {
	Event
	EventTypeName  string `json:"event_type_name,omitempty"`
	AvailableSeats int    `json:"plazas_disponibles"`
	IsActive       bool   `json:"esta_activo"`
}

// ListEventsResponse - страница списка событий
type ListEventsResponse struct {
	Events     []EventResponse `json:"eventos"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	Total      int             `json:"total"`
	Search     string          `json:"search"`
	EventType  string          `json:"tipo_seleccionado"`
	EventTypes []EventType     `json:"tipos_eventos"`
}

// EventDetailResponse - детали события для текущего пользователя
type EventDetailResponse struct {
	Event        EventResponse `json:"evento"`
	IsRegistered bool          `json:"esta_registrado"`
	CanEdit      bool          `json:"puede_editar"`
	CanDelete    bool          `json:"puede_eliminar"`
}

// MyEventsResponse - события организатора
type MyEventsResponse struct {
	Events    []EventResponse `json:"eventos"`
	CanCreate bool            `json:"puede_crear"`
}

// EventFormResponse - данные для формы создания/редактирования
type EventFormResponse struct {
	Event        *EventResponse `json:"evento,omitempty"`
	EventTypes   []EventType    `json:"tipos_eventos"`
	States       []string       `json:"estados"`
	Visibilities []string       `json:"privacidades"`
}

// RegistrationResponse - результат регистрации или отмены
type RegistrationResponse struct {
	Status         string        `json:"status"`
	Message        string        `json:"message"`
	Registration   *Registration `json:"registro,omitempty"`
	AvailableSeats int           `json:"plazas_disponibles"`
}

// SignupRequest - модель для регистрации пользователя
type SignupRequest struct {
	Username  string `json:"username" binding:"required,max=150,username"`
	Email     string `json:"email" binding:"required,email"`
	Password1 string `json:"password1" binding:"required"`
	Password2 string `json:"password2" binding:"required"`
	UserType  string `json:"tipo_usuario" binding:"required,oneof=asistente organizador"`
}

// LoginRequest - модель для входа
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse - ответ после входа или регистрации
type AuthResponse struct {
	Message string `json:"message"`
	User    *User  `json:"usuario"`
	Next    string `json:"next,omitempty"`
}

// ProfileResponse - профиль пользователя
type ProfileResponse struct {
	User   *User        `json:"usuario"`
	Groups []string     `json:"grupos"`
	Stats  ProfileStats `json:"estadisticas"`
}

// MessageResponse - простое сообщение
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse - тело ответа об ошибке
type ErrorResponse struct {
	Error    string            `json:"error"`
	Message  string            `json:"message,omitempty"`
	Detail   string            `json:"detalle,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	LoginURL string            `json:"login_url,omitempty"`
}
