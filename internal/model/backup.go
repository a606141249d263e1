package model

import (
	"fmt"
	"time"
)

type Backup struct {
	ID            string     `json:"id"`
	ConnectionID  string     `json:"connection_id"`
	Path          string     `json:"path"`
	DatabaseType  string     `json:"database_type"`
	Size          int64      `json:"size"`
	Status        string     `json:"status"`
	StartedTime   *time.Time `json:"started_time,omitempty"`
	CompletedTime *time.Time `json:"completed_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsTerminal reports whether the backup has reached a final status.
func (b Backup) IsTerminal() bool {
	return IsTerminalStatus(b.Status)
}

// CheckInvariants returns an error when the record contradicts its status:
// a running backup cannot have a completion time and the status must be known.
func (b Backup) CheckInvariants() error {
	switch b.Status {
	case StatusRunning:
		if b.CompletedTime != nil {
			return fmt.Errorf("backup %s is running but has completed_time set", b.ID)
		}
	case StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("backup %s has unknown status %q", b.ID, b.Status)
	}
	return nil
}

// CreateBackupParams is the request body for initiating a backup.
type CreateBackupParams struct {
	ConnectionID string `json:"connection_id" validate:"required"`
}
