// Package auth resolves principals against the role-specific profile
// collections and gates which commands each role may issue.
package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/equipdesk/equipdesk/internal/domain"
	"github.com/equipdesk/equipdesk/internal/repository"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// Action is an operation the permission matrix gates.
type Action string

const (
	ActionCreate       Action = "CREATE"
	ActionAssign       Action = "ASSIGN"
	ActionDeny         Action = "DENY"
	ActionReactivate   Action = "REACTIVATE"
	ActionResolve      Action = "RESOLVE"
	ActionChatSend     Action = "CHAT_SEND"
	ActionReadOwn      Action = "READ_OWN"
	ActionReadAssigned Action = "READ_ASSIGNED"
	ActionReadAll      Action = "READ_ALL"
)

// permissions is the static role matrix. Ownership and assignment scope are
// enforced by the services on top of this.
var permissions = map[domain.Role]map[Action]struct{}{
	domain.RoleEmployee: {
		ActionCreate:   {},
		ActionReadOwn:  {},
		ActionChatSend: {},
	},
	domain.RoleTechnician: {
		ActionResolve:      {},
		ActionReadAssigned: {},
		ActionChatSend:     {},
	},
	domain.RoleAdministrator: {
		ActionAssign:     {},
		ActionDeny:       {},
		ActionReactivate: {},
		ActionReadAll:    {},
	},
}

// Authorize reports whether the role may issue the action. Unknown roles and
// unknown actions fail closed.
func Authorize(role domain.Role, action Action) bool {
	actions, ok := permissions[role]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// Require returns nil when the role may issue the action, Unauthorized
// otherwise.
func Require(role domain.Role, action Action) error {
	if !Authorize(role, action) {
		return apperrors.NewUnauthorized("role " + string(role) + " may not " + string(action))
	}
	return nil
}

// Session is the explicitly constructed acting principal, built at login and
// passed to services at call sites. Immutable for its lifetime.
type Session struct {
	Email     string
	Name      string
	Role      domain.Role
	ProfileID string
}

// Resolver determines a principal's role by probing the profile collections
// in fixed precedence order: technician, administrator, employee.
type Resolver struct {
	probes []repository.ProfileRepository
}

// NewResolver wires the probes. Order matters and is fixed by the caller.
func NewResolver(technicians, administrators, employees repository.ProfileRepository) *Resolver {
	return &Resolver{probes: []repository.ProfileRepository{technicians, administrators, employees}}
}

// Resolve finds the profile for the credential and verifies the password.
// When no collection holds the email, resolution fails closed with
// Unauthorized rather than falling through to any default role.
func (r *Resolver) Resolve(ctx context.Context, email, password string) (*Session, error) {
	for _, probe := range r.probes {
		profile, err := probe.GetByEmail(ctx, email)
		if err != nil {
			if apperrors.IsCode(err, "NOT_FOUND") {
				continue
			}
			return nil, err
		}
		if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)) != nil {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return &Session{
			Email:     profile.Email,
			Name:      profile.FullName(),
			Role:      profile.Role,
			ProfileID: profile.ID,
		}, nil
	}
	return nil, apperrors.NewUnauthorized("invalid credentials")
}
