package model

// ChangeKind is the kind of a store change notification.
type ChangeKind string

const (
	ChangePut    ChangeKind = "put"
	ChangeDelete ChangeKind = "delete"
)

// ChangeEvent notifies observers of a Release Store mutation. Release is nil
// for deletions.
type ChangeEvent struct {
	Kind     ChangeKind
	DemandID string
	Release  *Release
}
