package service

import (
	"errors"
	"regexp"
	"strings"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

const (
	defaultCapacity = 100
	maxPriceDigits  = 8

	msgRequired      = "Este campo es obligatorio."
	msgInvalidChoice = "Seleccione una opción válida."
)

var priceRe = regexp.MustCompile(`^(\d+)(?:\.(\d{1,2}))?$`)

var (
	errNegativePrice = errors.New("Asegúrese de que este valor es mayor o igual a 0.")
	errPriceFormat   = errors.New("Introduzca un número válido con un máximo de 2 decimales.")
	errPriceDigits   = errors.New("Asegúrese de que no hay más de 8 dígitos antes del punto decimal.")
)

// NormalizePrice validates a NUMERIC(10,2) amount and returns it with two decimals.
// An empty value means free entry.
func NormalizePrice(raw string) (string, error) {
	s := strings.TrimSpace(strings.Replace(raw, ",", ".", 1))
	if s == "" {
		return "0.00", nil
	}
	if strings.HasPrefix(s, "-") {
		return "", errNegativePrice
	}

	m := priceRe.FindStringSubmatch(s)
	if m == nil {
		return "", errPriceFormat
	}

	whole := strings.TrimLeft(m[1], "0")
	if whole == "" {
		whole = "0"
	}
	if len(whole) > maxPriceDigits {
		return "", errPriceDigits
	}

	frac := m[2]
	for len(frac) < 2 {
		frac += "0"
	}
	return whole + "." + frac, nil
}

// applyEventRequest validates req and copies it onto event.
// On an existing event, omitted capacity, state, visibility, price and image keep their current values.
func applyEventRequest(event *models.Event, req *models.EventRequest, typeExists bool) error {
	v := apperrors.NewValidationError()

	if strings.TrimSpace(req.Title) == "" {
		v.Add("title", msgRequired)
	}
	if strings.TrimSpace(req.Description) == "" {
		v.Add("description", msgRequired)
	}
	if strings.TrimSpace(req.Location) == "" {
		v.Add("location", msgRequired)
	}
	if !typeExists {
		v.Add("event_type_id", msgInvalidChoice)
	}

	if req.StartTime.IsZero() {
		v.Add("start_time", msgRequired)
	}
	if req.EndTime.IsZero() {
		v.Add("end_time", msgRequired)
	}
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && !req.EndTime.After(req.StartTime.Time) {
		v.Add("end_time", "La fecha de fin debe ser posterior a la fecha de inicio.")
	}

	capacity := defaultCapacity
	if req.MaxCapacity != nil {
		capacity = *req.MaxCapacity
	} else if event.MaxCapacity > 0 {
		capacity = event.MaxCapacity
	}
	if capacity <= 0 {
		v.Add("max_capacity", "La capacidad máxima debe ser mayor que cero.")
	}

	price := event.Price
	if event.ID == 0 || strings.TrimSpace(req.Price) != "" {
		normalized, err := NormalizePrice(req.Price)
		if err != nil {
			v.Add("price", err.Error())
		}
		price = normalized
	}

	state := firstNonEmpty(req.State, event.State, models.EventStateDraft)
	switch state {
	case models.EventStateDraft, models.EventStatePublished, models.EventStateCancelled, models.EventStateFinished:
	default:
		v.Add("state", msgInvalidChoice)
	}

	visibility := firstNonEmpty(req.Visibility, event.Visibility, models.VisibilityPublic)
	if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
		v.Add("visibility", msgInvalidChoice)
	}

	if err := v.OrNil(); err != nil {
		return err
	}

	event.Title = strings.TrimSpace(req.Title)
	event.Description = req.Description
	event.EventTypeID = req.EventTypeID
	event.StartTime = req.StartTime.Time
	event.EndTime = req.EndTime.Time
	event.Location = strings.TrimSpace(req.Location)
	event.MaxCapacity = capacity
	event.State = state
	event.Visibility = visibility
	event.Price = price
	if req.Image != nil && *req.Image == "" {
		event.Image = nil
	} else if req.Image != nil {
		event.Image = req.Image
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
