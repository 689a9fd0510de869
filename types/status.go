package types

// TxStatus is the lifecycle status of a tracked transaction.
type TxStatus int32

const (
	TxStatusUnspecified TxStatus = 0
	TxStatusPending     TxStatus = 1
	TxStatusProcessed   TxStatus = 2
	TxStatusSuccess     TxStatus = 3
	TxStatusFailure     TxStatus = 4
	TxStatusInvalid     TxStatus = 5
)

// Rank orders statuses for merge decisions: pending < processed < terminal.
// All terminal statuses share the top rank so one terminal outcome never
// overwrites another.
func (s TxStatus) Rank() int {
	switch s {
	case TxStatusPending:
		return 1
	case TxStatusProcessed:
		return 2
	case TxStatusSuccess, TxStatusFailure, TxStatusInvalid:
		return 3
	default:
		return 0
	}
}

// IsTerminal reports whether no further status transition is permitted.
func (s TxStatus) IsTerminal() bool {
	return s == TxStatusSuccess || s == TxStatusFailure || s == TxStatusInvalid
}

func (s TxStatus) String() string {
	switch s {
	case TxStatusPending:
		return "pending"
	case TxStatusProcessed:
		return "processed"
	case TxStatusSuccess:
		return "success"
	case TxStatusFailure:
		return "failure"
	case TxStatusInvalid:
		return "invalid"
	default:
		return "unspecified"
	}
}
