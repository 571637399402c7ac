package reconx

import "time"

// Kind names the cascade a task re-runs.
type Kind string

const (
	KindUserRemoval        Kind = "user.remove"
	KindApplicationRemoval Kind = "application.remove"
	KindCredentialsRemoval Kind = "credentials.remove_all"
	KindScopeRemoval       Kind = "scope.remove"
)

// Task is a partially applied cascade waiting to be re-run. Subject holds
// the ids or names the cascade was called with.
type Task struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Subject     []string  `json:"subject"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	LastError   string    `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Exhausted reports whether the task has used all of its attempts.
func (t *Task) Exhausted() bool {
	return t.Attempts >= t.MaxAttempts
}
