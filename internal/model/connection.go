package model

import "time"

type Connection struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	CredentialsRef string    `json:"credentials_ref,omitempty"`
	Schedule       *Schedule `json:"backup_schedule,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasActiveSchedule reports whether the connection has an enabled backup schedule.
func (c Connection) HasActiveSchedule() bool {
	return c.Schedule != nil && c.Schedule.Enabled
}
