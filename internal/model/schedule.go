package model

import "time"

// Schedule is the backup schedule attached to a single connection.
type Schedule struct {
	ConnectionID   string     `json:"connection_id"`
	CronSchedule   string     `json:"cron_schedule"`
	RetentionDays  int        `json:"retention_days"`
	Enabled        bool       `json:"enabled"`
	NextRunTime    *time.Time `json:"next_run_time,omitempty"`
	LastBackupTime *time.Time `json:"last_backup_time,omitempty"`
}

type ScheduleBackupParams struct {
	ConnectionID  string `json:"connection_id" validate:"required"`
	CronSchedule  string `json:"cron_schedule" validate:"required,cron"`
	RetentionDays int    `json:"retention_days" validate:"gt=0"`
}

type UpdateScheduleParams struct {
	CronSchedule  string `json:"cron_schedule" validate:"required,cron"`
	RetentionDays int    `json:"retention_days" validate:"gt=0"`
}
