package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/logger"
	"eventplatform/internal/metrics"
	"eventplatform/internal/models"
	"eventplatform/internal/permissions"
)

const (
	UserTypeAttendee  = "asistente"
	UserTypeOrganizer = "organizador"

	minPasswordLength = 8

	MsgLoggedOut         = "Has cerrado sesión exitosamente."
	MsgInvalidLogin      = "Usuario o contraseña incorrectos. Por favor, inténtalo de nuevo."
	MsgSignupFormat      = "¡Registro exitoso! Bienvenido %s. Has sido asignado al grupo %s."
	MsgAccessDenied      = "No tienes permisos suficientes para acceder a esta página."
	MsgAccessDeniedTitle = "Acceso Denegado"
)

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidUsername reports whether name fits the username charset and length
func ValidUsername(name string) bool {
	return len(name) <= 150 && usernameRe.MatchString(name)
}

// userTypeGroups maps the signup choice to the role group that backs it
var userTypeGroups = map[string]string{
	UserTypeAttendee:  models.GroupAttendees,
	UserTypeOrganizer: models.GroupOrganizers,
}

// DefaultEventTypes seeds the catalog on setup
var DefaultEventTypes = []models.EventType{
	{Name: "Conferencia", Description: "Charlas y ponencias ante una audiencia."},
	{Name: "Concierto", Description: "Actuaciones musicales en vivo."},
	{Name: "Seminario", Description: "Sesiones formativas sobre un tema concreto."},
	{Name: "Taller", Description: "Actividades prácticas en grupos reducidos."},
	{Name: "Reunión", Description: "Encuentros de trabajo o networking."},
}

type AccountService struct {
	users         UserStore
	sessions      SessionStore
	events        EventStore
	registrations RegistrationStore
	eventTypes    EventTypeStore
	publisher     Publisher
	metrics       *metrics.Metrics
	bcryptCost    int
	sessionTTL    time.Duration
	now           func() time.Time
}

func NewAccountService(deps Deps) *AccountService {
	cost := deps.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &AccountService{
		users:         deps.Users,
		sessions:      deps.Sessions,
		events:        deps.Events,
		registrations: deps.Registrations,
		eventTypes:    deps.EventTypes,
		publisher:     deps.Publisher,
		metrics:       deps.Metrics,
		bcryptCost:    cost,
		sessionTTL:    deps.SessionTTL,
		now:           deps.Now,
	}
}

// Signup creates the account, assigns the role group chosen by the user and opens a session
func (s *AccountService) Signup(ctx context.Context, req *models.SignupRequest) (*models.User, *models.Session, error) {
	v := apperrors.NewValidationError()

	username := strings.TrimSpace(req.Username)
	if username == "" {
		v.Add("username", msgRequired)
	} else if !ValidUsername(username) {
		v.Add("username", "Introduzca un nombre de usuario válido. Solo letras, números y @/./+/-/_ permitidos.")
	}

	if strings.TrimSpace(req.Email) == "" {
		v.Add("email", msgRequired)
	}

	validatePassword(v, req.Password1, req.Password2)

	group, ok := userTypeGroups[req.UserType]
	if !ok {
		v.Add("tipo_usuario", msgInvalidChoice)
	}

	if err := v.OrNil(); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password1), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		IsActive:     true,
	}

	if err := s.users.CreateWithGroup(ctx, user, group); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			v.Add("username", "Ya existe un usuario con este nombre.")
			return nil, nil, v
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.WithContext(ctx).Info("User registered", "user_id", user.UserID, "group", group)
	publish(ctx, s.publisher, s.metrics, models.EventUserRegistered, models.UserRegisteredEvent{
		UserID:    user.UserID,
		Username:  user.Username,
		Group:     group,
		Timestamp: s.now(),
	})

	session, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Login checks the credentials and opens a session
func (s *AccountService) Login(ctx context.Context, username, password string) (*models.User, *models.Session, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.TouchLogin(ctx, user.UserID); err != nil {
		logger.WithContext(ctx).Warn("Failed to update last login", "error", err, "user_id", user.UserID)
	}

	session, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Authenticate verifies credentials without opening a session
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// ResolveSession returns the stored session or ErrNotFound.
// Groups are reloaded from the user row, so role changes apply on the next request;
// the session of a deactivated or deleted user is dropped.
func (s *AccountService) ResolveSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, apperrors.ErrNotFound
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if !session.ExpiresAt.After(s.now()) {
		return nil, apperrors.ErrNotFound
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if err != nil || !user.IsActive {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			logger.WithContext(ctx).Warn("Failed to drop session", "error", err, "user_id", session.UserID)
		}
		return nil, apperrors.ErrNotFound
	}

	session.Username = user.Username
	session.Groups = user.Groups
	return session, nil
}

func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, token)
}

// Profile returns the user's groups and activity counters.
// Organizer counters are only filled for members of Organizadores.
func (s *AccountService) Profile(ctx context.Context, p permissions.Principal) (*models.ProfileResponse, error) {
	if !p.IsAuthenticated() {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	var stats models.ProfileStats
	if slices.Contains(user.Groups, models.GroupOrganizers) {
		stats.EventsOrganized, stats.EventsPublished, err = s.events.CountByOrganizer(ctx, user.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to count organized events: %w", err)
		}
	}

	stats.EventsRegistered, err = s.registrations.CountForUser(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}

	return &models.ProfileResponse{
		User:   user,
		Groups: user.Groups,
		Stats:  stats,
	}, nil
}

// Bootstrap creates the role groups and the default event types. It is idempotent.
func (s *AccountService) Bootstrap(ctx context.Context) error {
	for _, name := range permissions.GroupNames() {
		if err := s.users.EnsureGroup(ctx, name); err != nil {
			return fmt.Errorf("failed to ensure group %s: %w", name, err)
		}
	}

	for _, t := range DefaultEventTypes {
		created, err := s.eventTypes.Ensure(ctx, &t)
		if err != nil {
			return fmt.Errorf("failed to ensure event type %s: %w", t.Name, err)
		}
		if created {
			logger.Get().Info("Event type created", "name", t.Name, "id", t.ID)
		}
	}
	return nil
}

// CreateAdmin creates an administrator account, or adds an existing user to Administradores
func (s *AccountService) CreateAdmin(ctx context.Context, username, password, email string) (*models.User, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if err := s.users.AddToGroup(ctx, existing.UserID, models.GroupAdministrators); err != nil {
			return nil, err
		}
		return s.users.GetByID(ctx, existing.UserID)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	v := apperrors.NewValidationError()
	validatePassword(v, password, password)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.CreateWithGroup(ctx, user, models.GroupAdministrators); err != nil {
		return nil, err
	}
	return user, nil
}

// SetActive enables or disables the account by username
func (s *AccountService) SetActive(ctx context.Context, username string, active bool) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, user.UserID, active); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	user.IsActive = active
	logger.WithContext(ctx).Info("User activity changed", "user_id", user.UserID, "active", active)
	return user, nil
}

func (s *AccountService) openSession(ctx context.Context, user *models.User) (*models.Session, error) {
	now := s.now()
	session := &models.Session{
		Token:     uuid.New().String(),
		UserID:    user.UserID,
		Username:  user.Username,
		Groups:    user.Groups,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return session, nil
}

func validatePassword(v *apperrors.ValidationError, password, confirmation string) {
	if password != confirmation {
		v.Add("password2", "Los dos campos de contraseña no coinciden.")
	}
	if len(password) < minPasswordLength {
		v.Add("password1", "Esta contraseña es demasiado corta. Debe contener al menos 8 caracteres.")
	} else if strings.Trim(password, "0123456789") == "" {
		v.Add("password1", "Esta contraseña es completamente numérica.")
	}
}
