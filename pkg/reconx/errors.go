package reconx

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var reconErrors = errx.NewRegistry("RECON")

var (
	ErrInvalidTask     = reconErrors.Register("INVALID_TASK", errx.TypeValidation, 0, "Invalid reconciliation task")
	ErrNoHandler       = reconErrors.Register("NO_HANDLER", errx.TypeValidation, 0, "No handler registered for task kind")
	ErrAlreadyRunning  = reconErrors.Register("ALREADY_RUNNING", errx.TypeConflict, 0, "Runner is already running")
	ErrTaskNotFound    = reconErrors.Register("TASK_NOT_FOUND", errx.TypeNotFound, 0, "Reconciliation task not found")
	ErrShutdownTimeout = reconErrors.Register("SHUTDOWN_TIMEOUT", errx.TypeInternal, 0, "Graceful shutdown timed out")
)
