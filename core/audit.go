package core

// ActionLog records staff actions and rejected access attempts.
// Recording is fire-and-forget; implementations log their own failures.
type ActionLog interface {
	Record(actor, action string)
}
