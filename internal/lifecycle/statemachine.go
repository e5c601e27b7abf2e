// Package lifecycle implements the ticket state machine: pure validation of
// status transitions and computation of the field delta each command applies.
// It never talks to storage.
package lifecycle

import (
	"time"

	"github.com/equipdesk/equipdesk/internal/domain"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// Command is a role-gated mutation of a ticket.
type Command string

const (
	CommandCreate     Command = "CREATE"
	CommandAssign     Command = "ASSIGN"
	CommandDeny       Command = "DENY"
	CommandReactivate Command = "REACTIVATE"
	CommandResolve    Command = "RESOLVE"
)

// statusNone is the pseudo-state a ticket is created from.
const statusNone domain.TicketStatus = ""

// rule is one row of the transition table.
type rule struct {
	from              domain.TicketStatus
	requireAssigned   bool
	requireUnassigned bool
	actor             domain.Role
	to                domain.TicketStatus
}

var transitions = map[Command]rule{
	CommandCreate:     {from: statusNone, actor: domain.RoleEmployee, to: domain.TicketStatusOpen},
	CommandAssign:     {from: domain.TicketStatusOpen, requireUnassigned: true, actor: domain.RoleAdministrator, to: domain.TicketStatusOpen},
	CommandDeny:       {from: domain.TicketStatusOpen, actor: domain.RoleAdministrator, to: domain.TicketStatusDenied},
	CommandReactivate: {from: domain.TicketStatusDenied, actor: domain.RoleAdministrator, to: domain.TicketStatusOpen},
	CommandResolve:    {from: domain.TicketStatusOpen, requireAssigned: true, actor: domain.RoleTechnician, to: domain.TicketStatusResolved},
}

// Decision is the outcome of a legal command: the target status, the
// precondition a conditional commit must re-check, and which derived fields
// the command touches.
type Decision struct {
	From domain.TicketStatus
	To   domain.TicketStatus

	// Precondition for the store's conditional commit.
	ExpectUnassigned bool

	StampFinished   bool // Deny, Resolve: FinishedAt = now
	ClearFinished   bool // Assign, Reactivate: FinishedAt = nil
	SetAssignment   bool // Assign: technician fields, priority, AssignedAt
	ClearAssignment bool // Deny: technician fields and AssignedAt back to nil
}

// Assignment carries the fields the Assign command sets atomically.
type Assignment struct {
	TechnicianEmail string
	TechnicianName  string
	Priority        domain.TicketPriority
}

// Decide validates (current status, assigned?, command, actor role) against
// the transition table. Any combination not in the table is rejected with an
// InvalidTransition error carrying the attempted pair; a wrong actor is
// rejected with Unauthorized.
func Decide(current domain.TicketStatus, assigned bool, cmd Command, actor domain.Role) (Decision, error) {
	r, ok := transitions[cmd]
	if !ok {
		return Decision{}, apperrors.NewInvalidTransition(string(current), string(cmd))
	}
	if actor != r.actor {
		return Decision{}, apperrors.NewUnauthorized("role " + string(actor) + " may not issue " + string(cmd))
	}
	if current != r.from {
		return Decision{}, apperrors.NewInvalidTransition(string(current), string(cmd))
	}
	if r.requireUnassigned && assigned {
		return Decision{}, apperrors.NewInvalidTransition(string(current), string(cmd))
	}
	if r.requireAssigned && !assigned {
		return Decision{}, apperrors.NewInvalidTransition(string(current), string(cmd))
	}

	d := Decision{From: current, To: r.to, ExpectUnassigned: r.requireUnassigned}
	switch cmd {
	case CommandAssign:
		d.SetAssignment = true
		d.ClearFinished = true
	case CommandDeny:
		d.StampFinished = true
		d.ClearAssignment = true
	case CommandReactivate:
		d.ClearFinished = true
	case CommandResolve:
		d.StampFinished = true
	}
	return d, nil
}

// Apply mutates the ticket according to the decision. The Assign command
// requires a non-nil assignment; every other command ignores it. Apply keeps
// the invariant that FinishedAt is set iff the ticket is Denied or Resolved.
func (d Decision) Apply(t *domain.Ticket, asg *Assignment, now time.Time) {
	t.Status = d.To
	if d.StampFinished {
		finished := now
		t.FinishedAt = &finished
	}
	if d.ClearFinished {
		t.FinishedAt = nil
	}
	if d.SetAssignment && asg != nil {
		email := asg.TechnicianEmail
		name := asg.TechnicianName
		priority := asg.Priority
		assignedAt := now
		t.TechnicianEmail = &email
		t.TechnicianName = &name
		t.Priority = &priority
		t.AssignedAt = &assignedAt
	}
	if d.ClearAssignment {
		t.TechnicianEmail = nil
		t.TechnicianName = nil
		t.AssignedAt = nil
	}
}
