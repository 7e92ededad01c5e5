package workflow

// Status is a stage in the document approval lifecycle.
type Status string

const (
	StatusDraft        Status = "Draft"
	StatusPrepared     Status = "Prepared"
	StatusChecked      Status = "Checked"
	StatusAcknowledged Status = "Acknowledged"
	StatusApproved     Status = "Approved"
	StatusReceived     Status = "Received"
	StatusClosed       Status = "Closed"
	StatusRejected     Status = "Rejected"
	StatusRevised      Status = "Revised"
)

// Statuses lists every valid status in chain order, side branches last.
var Statuses = []Status{
	StatusDraft,
	StatusPrepared,
	StatusChecked,
	StatusAcknowledged,
	StatusApproved,
	StatusReceived,
	StatusClosed,
	StatusRejected,
	StatusRevised,
}

var validStatuses = map[Status]bool{
	StatusDraft:        true,
	StatusPrepared:     true,
	StatusChecked:      true,
	StatusAcknowledged: true,
	StatusApproved:     true,
	StatusReceived:     true,
	StatusClosed:       true,
	StatusRejected:     true,
	StatusRevised:      true,
}

var terminalStatuses = map[Status]bool{
	StatusClosed:   true,
	StatusRejected: true,
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}
