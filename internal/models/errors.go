package models

// ConflictError reports a rejected update whose expected version no
// longer matches. Current is the authoritative server state.
type ConflictError struct {
	Current *Task
}

func (e *ConflictError) Error() string {
	return "Conflict detected"
}
