package model

// Backup status constants.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// IsTerminalStatus reports whether no further transition is possible from status.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
