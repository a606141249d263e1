package handler

import (
	"context"

	"github.com/edvin/backupdash/internal/backups"
	"github.com/edvin/backupdash/internal/model"
	"github.com/edvin/backupdash/internal/notify"
)

// BackupsService is the slice of *backups.Orchestrator the handlers use.
type BackupsService interface {
	State() backups.State
	SetPage(page int) error
	SetSearch(search string) error
	Refresh()
	Watch(fn func(backups.State)) (cancel func())
	CreateBackup(connectionID string) (*backups.Result, error)
	CreateSchedule(params model.ScheduleBackupParams) (*backups.Result, error)
	UpdateExistingSchedule(connectionID string, params model.UpdateScheduleParams) (*backups.Result, error)
	DisableSchedule(connectionID string) (*backups.Result, error)
}

type ConnectionsService interface {
	State() backups.ConnectionsState
	Find(id string) (model.Connection, bool)
}

// SessionStore holds the backend session token.
type SessionStore interface {
	IsAuthenticated() bool
	Save(token string) error
	Clear() error
}

// Invalidator marks cached query families stale.
type Invalidator interface {
	Invalidate(family string) int
}

type Exporter interface {
	Render(ctx context.Context, search string) ([]byte, int, error)
}

type Uploader interface {
	Upload(ctx context.Context, name string, body []byte) (string, error)
}

// NotificationSource streams user-facing notifications.
type NotificationSource interface {
	Subscribe(bufferSize int) (<-chan notify.Notification, func())
}
