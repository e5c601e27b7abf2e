package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/equipdesk/equipdesk/internal/domain"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

type fakeProfiles struct {
	role     domain.Role
	byEmail  map[string]*domain.Profile
	probeErr error
}

func (f *fakeProfiles) Role() domain.Role { return f.role }

func (f *fakeProfiles) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	profile, ok := f.byEmail[email]
	if !ok {
		return nil, apperrors.NewNotFound("profile", nil)
	}
	copied := *profile
	copied.Role = f.role
	return &copied, nil
}

func (f *fakeProfiles) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	for _, profile := range f.byEmail {
		if profile.ID == id {
			copied := *profile
			copied.Role = f.role
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("profile", nil)
}

func (f *fakeProfiles) List(ctx context.Context, limit, offset int) ([]domain.Profile, error) {
	return nil, nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func profile(id, first, last, email, passwordHash string) *domain.Profile {
	return &domain.Profile{ID: id, FirstName: first, LastName: last, Email: email, PasswordHash: passwordHash}
}

func TestResolveProbesInPrecedenceOrder(t *testing.T) {
	pw := hash(t, "secret")
	// Same email exists in both the technician and employee collections:
	// the technician probe runs first and wins.
	technicians := &fakeProfiles{role: domain.RoleTechnician, byEmail: map[string]*domain.Profile{
		"dual@x": profile("tech-1", "Dina", "Avila", "dual@x", pw),
	}}
	administrators := &fakeProfiles{role: domain.RoleAdministrator, byEmail: map[string]*domain.Profile{}}
	employees := &fakeProfiles{role: domain.RoleEmployee, byEmail: map[string]*domain.Profile{
		"dual@x": profile("emp-9", "Dina", "Avila", "dual@x", pw),
	}}

	resolver := NewResolver(technicians, administrators, employees)
	session, err := resolver.Resolve(context.Background(), "dual@x", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, session.Role)
	assert.Equal(t, "tech-1", session.ProfileID)
	assert.Equal(t, "Dina Avila", session.Name)
}

func TestResolveFallsThroughToLaterCollections(t *testing.T) {
	pw := hash(t, "secret")
	technicians := &fakeProfiles{role: domain.RoleTechnician, byEmail: map[string]*domain.Profile{}}
	administrators := &fakeProfiles{role: domain.RoleAdministrator, byEmail: map[string]*domain.Profile{}}
	employees := &fakeProfiles{role: domain.RoleEmployee, byEmail: map[string]*domain.Profile{
		"emp@x": profile("emp-1", "Eva", "Reyes", "emp@x", pw),
	}}

	resolver := NewResolver(technicians, administrators, employees)
	session, err := resolver.Resolve(context.Background(), "emp@x", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, session.Role)
}

func TestResolveFailsClosedWhenNoProfileMatches(t *testing.T) {
	resolver := NewResolver(
		&fakeProfiles{role: domain.RoleTechnician, byEmail: map[string]*domain.Profile{}},
		&fakeProfiles{role: domain.RoleAdministrator, byEmail: map[string]*domain.Profile{}},
		&fakeProfiles{role: domain.RoleEmployee, byEmail: map[string]*domain.Profile{}},
	)
	_, err := resolver.Resolve(context.Background(), "ghost@x", "whatever")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestResolveRejectsWrongPassword(t *testing.T) {
	resolver := NewResolver(
		&fakeProfiles{role: domain.RoleTechnician, byEmail: map[string]*domain.Profile{
			"tech@x": profile("tech-1", "Tom", "Rio", "tech@x", hash(t, "right")),
		}},
		&fakeProfiles{role: domain.RoleAdministrator, byEmail: map[string]*domain.Profile{}},
		&fakeProfiles{role: domain.RoleEmployee, byEmail: map[string]*domain.Profile{}},
	)
	_, err := resolver.Resolve(context.Background(), "tech@x", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestResolvePropagatesStorageFailures(t *testing.T) {
	resolver := NewResolver(
		&fakeProfiles{role: domain.RoleTechnician, probeErr: apperrors.NewStorageUnavailable(nil)},
		&fakeProfiles{role: domain.RoleAdministrator, byEmail: map[string]*domain.Profile{}},
		&fakeProfiles{role: domain.RoleEmployee, byEmail: map[string]*domain.Profile{}},
	)
	_, err := resolver.Resolve(context.Background(), "tech@x", "secret")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "STORAGE_UNAVAILABLE"))
}

func TestPermissionMatrix(t *testing.T) {
	tests := []struct {
		role    domain.Role
		action  Action
		allowed bool
	}{
		{domain.RoleEmployee, ActionCreate, true},
		{domain.RoleEmployee, ActionReadOwn, true},
		{domain.RoleEmployee, ActionChatSend, true},
		{domain.RoleEmployee, ActionAssign, false},
		{domain.RoleEmployee, ActionResolve, false},
		{domain.RoleEmployee, ActionReadAll, false},

		{domain.RoleTechnician, ActionResolve, true},
		{domain.RoleTechnician, ActionReadAssigned, true},
		{domain.RoleTechnician, ActionChatSend, true},
		{domain.RoleTechnician, ActionCreate, false},
		{domain.RoleTechnician, ActionDeny, false},

		{domain.RoleAdministrator, ActionAssign, true},
		{domain.RoleAdministrator, ActionDeny, true},
		{domain.RoleAdministrator, ActionReactivate, true},
		{domain.RoleAdministrator, ActionReadAll, true},
		{domain.RoleAdministrator, ActionCreate, false},
		{domain.RoleAdministrator, ActionResolve, false},

		{domain.Role("UNKNOWN"), ActionCreate, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.allowed, Authorize(tc.role, tc.action),
			"%s / %s", tc.role, tc.action)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)
	session := &Session{Email: "a@x", Name: "A", Role: domain.RoleAdministrator, ProfileID: "adm-1"}

	token, expiresAt, err := tm.GenerateToken(session)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	parsed, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, session, parsed)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 30).GenerateToken(&Session{Email: "a@x", Role: domain.RoleEmployee})
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 30).ParseToken(token)
	assert.Error(t, err)
}
