package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
	"eventplatform/internal/permissions"
	"eventplatform/internal/repository/memory"
)

func signupRequest(username, userType string) *models.SignupRequest {
	return &models.SignupRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password1: "secreto-largo",
		Password2: "secreto-largo",
		UserType:  userType,
	}
}

func TestSignup_AssignsGroupAndOpensSession(t *testing.T) {
	f := newFixture(t, nil)

	user, session, err := f.svc.Accounts.Signup(f.ctx, signupRequest("nueva", UserTypeOrganizer))
	require.NoError(t, err)
	assert.Equal(t, []string{models.GroupOrganizers}, user.Groups)
	assert.NotEqual(t, "secreto-largo", user.PasswordHash)

	require.NotNil(t, session)
	assert.Equal(t, user.UserID, session.UserID)
	assert.Equal(t, testNow.Add(f.svc.Accounts.sessionTTL), session.ExpiresAt)

	resolved, err := f.svc.Accounts.ResolveSession(f.ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{models.GroupOrganizers}, resolved.Groups)

	assert.Contains(t, f.publisher.subjects, models.EventUserRegistered)

	_, _, err = f.svc.Accounts.Signup(f.ctx, signupRequest("asis", UserTypeAttendee))
	require.NoError(t, err)
	stored, err := f.store.Users().GetByUsername(f.ctx, "asis")
	require.NoError(t, err)
	assert.Equal(t, []string{models.GroupAttendees}, stored.Groups)
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		mut   func(r *models.SignupRequest)
		field string
	}{
		{"password mismatch", func(r *models.SignupRequest) { r.Password2 = "otra-cosa-1" }, "password2"},
		{"short password", func(r *models.SignupRequest) { r.Password1, r.Password2 = "corta", "corta" }, "password1"},
		{"numeric password", func(r *models.SignupRequest) { r.Password1, r.Password2 = "12345678", "12345678" }, "password1"},
		{"bad username", func(r *models.SignupRequest) { r.Username = "con espacios" }, "username"},
		{"unknown user type", func(r *models.SignupRequest) { r.UserType = "admin" }, "tipo_usuario"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signupRequest("valido", UserTypeAttendee)
			tt.mut(req)

			_, _, err := f.svc.Accounts.Signup(f.ctx, req)
			v, ok := apperrors.IsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, v.Fields, tt.field)
		})
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.svc.Accounts.Signup(f.ctx, signupRequest("repetido", UserTypeAttendee))
	require.NoError(t, err)

	_, _, err = f.svc.Accounts.Signup(f.ctx, signupRequest("repetido", UserTypeOrganizer))
	v, ok := apperrors.IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, v.Fields, "username")
}

func TestSignup_MissingRoleGroupCreatesNoUser(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewServices(Deps{
		Events:        store.Events(),
		EventTypes:    store.EventTypes(),
		Registrations: store.Registrations(),
		Users:         store.Users(),
		Sessions:      store.Sessions(),
		BcryptCost:    bcrypt.MinCost,
		Now:           func() time.Time { return testNow },
	})

	user, session, err := svc.Accounts.Signup(ctx, signupRequest("huerfano", UserTypeOrganizer))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrGroupNotFound)
	_, isValidation := apperrors.IsValidation(err)
	assert.False(t, isValidation)
	assert.Nil(t, user)
	assert.Nil(t, session)

	_, err = store.Users().GetByUsername(ctx, "huerfano")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolveSession_FollowsUserRow(t *testing.T) {
	f := newFixture(t, nil)
	user, session, err := f.svc.Accounts.Signup(f.ctx, signupRequest("rotativa", UserTypeAttendee))
	require.NoError(t, err)

	require.NoError(t, f.store.Users().AddToGroup(f.ctx, user.UserID, models.GroupOrganizers))
	resolved, err := f.svc.Accounts.ResolveSession(f.ctx, session.Token)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.GroupAttendees, models.GroupOrganizers}, resolved.Groups)

	_, err = f.svc.Accounts.SetActive(f.ctx, "rotativa", false)
	require.NoError(t, err)

	_, err = f.svc.Accounts.ResolveSession(f.ctx, session.Token)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.store.Sessions().GetSession(f.ctx, session.Token)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "the session of a disabled account is dropped")

	_, _, err = f.svc.Accounts.Login(f.ctx, "rotativa", "secreto-largo")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = f.svc.Accounts.SetActive(f.ctx, "rotativa", true)
	require.NoError(t, err)
	_, session, err = f.svc.Accounts.Login(f.ctx, "rotativa", "secreto-largo")
	require.NoError(t, err)
	_, err = f.svc.Accounts.ResolveSession(f.ctx, session.Token)
	assert.NoError(t, err)

	_, err = f.svc.Accounts.SetActive(f.ctx, "nadie", false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLoginAndLogout(t *testing.T) {
	f := newFixture(t, nil)
	_, _, err := f.svc.Accounts.Signup(f.ctx, signupRequest("pepe", UserTypeAttendee))
	require.NoError(t, err)

	_, _, err = f.svc.Accounts.Login(f.ctx, "pepe", "incorrecta")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, _, err = f.svc.Accounts.Login(f.ctx, "nadie", "secreto-largo")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	user, session, err := f.svc.Accounts.Login(f.ctx, "pepe", "secreto-largo")
	require.NoError(t, err)
	assert.Equal(t, "pepe", user.Username)

	require.NoError(t, f.svc.Accounts.Logout(f.ctx, session.Token))
	_, err = f.svc.Accounts.ResolveSession(f.ctx, session.Token)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProfileStats(t *testing.T) {
	f := newFixture(t, nil)
	published := f.createEvent(t, f.organizer, 5, models.VisibilityPublic)

	draft := f.eventRequest("Borrador", 5, models.VisibilityPublic, testNow)
	draft.State = models.EventStateDraft
	_, err := f.svc.Events.Create(f.ctx, f.organizer, draft)
	require.NoError(t, err)

	_, err = f.svc.Registrations.Register(f.ctx, f.organizer, published.ID)
	require.NoError(t, err)

	profile, err := f.svc.Accounts.Profile(f.ctx, f.organizer)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Stats.EventsOrganized)
	assert.Equal(t, 1, profile.Stats.EventsPublished)
	assert.Equal(t, 1, profile.Stats.EventsRegistered)
	assert.Equal(t, []string{models.GroupOrganizers}, profile.Groups)

	_, err = f.svc.Registrations.Register(f.ctx, f.attendee, published.ID)
	require.NoError(t, err)
	_, err = f.svc.Registrations.Cancel(f.ctx, f.attendee, published.ID)
	require.NoError(t, err)

	profile, err = f.svc.Accounts.Profile(f.ctx, f.attendee)
	require.NoError(t, err)
	assert.Zero(t, profile.Stats.EventsOrganized)
	assert.Equal(t, 1, profile.Stats.EventsRegistered, "cancelled registrations still count")

	_, err = f.svc.Accounts.Profile(f.ctx, permissions.Anonymous())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestBootstrapIsIdempotentAndCreateAdmin(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.svc.Accounts.Bootstrap(f.ctx))

	types, err := f.store.EventTypes().List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, types, len(DefaultEventTypes))

	admin, err := f.svc.Accounts.CreateAdmin(f.ctx, "root", "clave-segura", "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{models.GroupAdministrators}, admin.Groups)

	promoted, err := f.svc.Accounts.CreateAdmin(f.ctx, "ana", "ignorada", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.GroupAttendees, models.GroupAdministrators}, promoted.Groups)
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "0.00", true},
		{"0", "0.00", true},
		{"15.5", "15.50", true},
		{"007,25", "7.25", true},
		{"99999999.99", "99999999.99", true},
		{"123456789", "", false},
		{"1.234", "", false},
		{"-1", "", false},
		{"abc", "", false},
	}

	for _, tt := range tests {
		got, err := NormalizePrice(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
