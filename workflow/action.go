package workflow

// Action is a user-triggered event that moves a document along the chain.
type Action string

const (
	ActionSubmit      Action = "submit"
	ActionResubmit    Action = "resubmit"
	ActionCheck       Action = "check"
	ActionAcknowledge Action = "acknowledge"
	ActionApprove     Action = "approve"
	ActionReceive     Action = "receive"
	ActionClose       Action = "close"
	ActionReject      Action = "reject"
	ActionRevise      Action = "revise"
)

var validActions = map[Action]bool{
	ActionSubmit:      true,
	ActionResubmit:    true,
	ActionCheck:       true,
	ActionAcknowledge: true,
	ActionApprove:     true,
	ActionReceive:     true,
	ActionClose:       true,
	ActionReject:      true,
	ActionRevise:      true,
}

func (a Action) String() string {
	return string(a)
}

func (a Action) IsValid() bool {
	return validActions[a]
}

// Canonical folds aliases onto the edge they share: resubmit is submit fired
// after a revision.
func (a Action) Canonical() Action {
	if a == ActionResubmit {
		return ActionSubmit
	}

	return a
}
