package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an action is not permitted in the current status.
	ErrInvalidTransition = errors.New("invalid-transition")

	// ErrInvalidStatus is returned for a status outside the approval chain.
	ErrInvalidStatus = errors.New("invalid-status")

	// ErrInvalidAction is returned for an unknown action.
	ErrInvalidAction = errors.New("invalid-action")
)

// Role names the actor allowed to fire an action at a given stage. The values
// match the role column on users.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleRequester    Role = "REQUESTER"
	RoleChecker      Role = "CHECKER"
	RoleAcknowledger Role = "ACKNOWLEDGER"
	RoleApprover     Role = "APPROVER"
	RoleReceiver     Role = "RECEIVER"
	RoleCloser       Role = "CLOSER"
)

type transition struct {
	to   Status
	role Role
}

// transitions is the full approval chain:
// Draft→Prepared→Checked→Acknowledged→Approved→Received→Closed, with Rejected
// and Revised as side branches. Closed and Rejected are terminal. The role on
// each edge is the actor owning that step; ADMIN may fire any edge.
var transitions = map[Status]map[Action]transition{
	StatusDraft: {
		ActionSubmit: {StatusPrepared, RoleRequester},
	},
	StatusRevised: {
		ActionSubmit: {StatusPrepared, RoleRequester},
	},
	StatusPrepared: {
		ActionCheck:  {StatusChecked, RoleChecker},
		ActionReject: {StatusRejected, RoleChecker},
		ActionRevise: {StatusRevised, RoleChecker},
	},
	StatusChecked: {
		ActionAcknowledge: {StatusAcknowledged, RoleAcknowledger},
		ActionReject:      {StatusRejected, RoleAcknowledger},
		ActionRevise:      {StatusRevised, RoleAcknowledger},
	},
	StatusAcknowledged: {
		ActionApprove: {StatusApproved, RoleApprover},
		ActionReject:  {StatusRejected, RoleApprover},
	},
	StatusApproved: {
		ActionReceive: {StatusReceived, RoleReceiver},
		ActionReject:  {StatusRejected, RoleReceiver},
	},
	StatusReceived: {
		ActionClose: {StatusClosed, RoleCloser},
	},
}

// actionOrder keeps PermittedActions output stable.
var actionOrder = []Action{
	ActionSubmit,
	ActionCheck,
	ActionAcknowledge,
	ActionApprove,
	ActionReceive,
	ActionClose,
	ActionReject,
	ActionRevise,
}

// Transition returns the status reached by firing action from from.
func Transition(from Status, action Action) (Status, error) {
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, from)
	}

	if !action.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}

	t, ok := transitions[from][action.Canonical()]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, from)
	}

	return t.to, nil
}

// RequiredRole returns the role allowed to fire action from from. ADMIN is
// always allowed and is not returned here; callers handle it separately.
func RequiredRole(from Status, action Action) (Role, error) {
	t, ok := transitions[from][action.Canonical()]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, from)
	}

	return t.role, nil
}

// CanFire reports whether role (or ADMIN) may fire action from from.
func CanFire(from Status, action Action, role Role) bool {
	t, ok := transitions[from][action.Canonical()]
	if !ok {
		return false
	}

	return role == RoleAdmin || role == t.role
}

// PermittedActions lists the actions that can be fired from from, in chain order.
func PermittedActions(from Status) []Action {
	config, ok := transitions[from]
	if !ok {
		return nil
	}

	var actions []Action
	for _, a := range actionOrder {
		if _, ok := config[a]; ok {
			actions = append(actions, a)
		}
	}

	return actions
}

// PendingStatus returns the status awaiting the given role, i.e. the stage on
// which that role's dashboard "pending" tab filters.
func PendingStatus(role Role) (Status, bool) {
	switch role {
	case RoleChecker:
		return StatusPrepared, true
	case RoleAcknowledger:
		return StatusChecked, true
	case RoleApprover:
		return StatusAcknowledged, true
	case RoleReceiver:
		return StatusApproved, true
	case RoleCloser:
		return StatusReceived, true
	}

	return "", false
}
