// Package backups coordinates the backup history view with the backend: it
// owns pagination and search, reads pages through the query cache, and runs
// backup and schedule mutations that invalidate the affected key families.
package backups

import (
	"context"
	"strconv"

	"github.com/edvin/backupdash/internal/model"
	"github.com/edvin/backupdash/internal/querycache"
)

// API is the subset of the backend used by this package.
type API interface {
	GetBackups(ctx context.Context, params model.ListBackupsParams) (*model.BackupPage, error)
	SaveBackup(ctx context.Context, connectionID string) error
	ScheduleBackup(ctx context.Context, params model.ScheduleBackupParams) error
	UpdateSchedule(ctx context.Context, connectionID string, params model.UpdateScheduleParams) error
	DisableBackupSchedule(ctx context.Context, connectionID string) error
	ListConnections(ctx context.Context) ([]model.Connection, error)
}

// Key families in the query cache.
const (
	FamilyBackups     = "backups"
	FamilyConnections = "connections"
)

// ConnectionsKey is the single key of the connections family.
var ConnectionsKey = querycache.NewKey(FamilyConnections, nil)

// BackupsKey returns the cache key of one history page.
func BackupsKey(params model.ListBackupsParams) querycache.Key {
	return querycache.NewKey(FamilyBackups, map[string]string{
		"page":   strconv.Itoa(params.Page),
		"limit":  strconv.Itoa(params.Limit),
		"search": params.Search,
	})
}

func backupsLoader(api API, params model.ListBackupsParams) querycache.Loader {
	return func(ctx context.Context) (any, error) {
		page, err := api.GetBackups(ctx, params)
		if err != nil {
			return nil, err
		}
		return page, nil
	}
}

func connectionsLoader(api API) querycache.Loader {
	return func(ctx context.Context) (any, error) {
		conns, err := api.ListConnections(ctx)
		if err != nil {
			return nil, err
		}
		return conns, nil
	}
}

// FetchPage reads one history page through the cache.
func FetchPage(ctx context.Context, cache *querycache.Cache, api API, params model.ListBackupsParams) (*model.BackupPage, error) {
	v, err := cache.Fetch(ctx, BackupsKey(params), backupsLoader(api, params))
	if err != nil {
		return nil, err
	}
	return v.(*model.BackupPage), nil
}

// FetchConnections reads the connection list through the cache.
func FetchConnections(ctx context.Context, cache *querycache.Cache, api API) ([]model.Connection, error) {
	v, err := cache.Fetch(ctx, ConnectionsKey, connectionsLoader(api))
	if err != nil {
		return nil, err
	}
	return v.([]model.Connection), nil
}
