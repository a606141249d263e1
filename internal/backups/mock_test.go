package backups

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupdash/internal/model"
	"github.com/edvin/backupdash/internal/notify"
	"github.com/edvin/backupdash/internal/querycache"
)

// ---------- Mock API ----------

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetBackups(ctx context.Context, params model.ListBackupsParams) (*model.BackupPage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BackupPage), args.Error(1)
}

func (m *mockAPI) SaveBackup(ctx context.Context, connectionID string) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

func (m *mockAPI) ScheduleBackup(ctx context.Context, params model.ScheduleBackupParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockAPI) UpdateSchedule(ctx context.Context, connectionID string, params model.UpdateScheduleParams) error {
	args := m.Called(ctx, connectionID, params)
	return args.Error(0)
}

func (m *mockAPI) DisableBackupSchedule(ctx context.Context, connectionID string) error {
	args := m.Called(ctx, connectionID)
	return args.Error(0)
}

func (m *mockAPI) ListConnections(ctx context.Context) ([]model.Connection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Connection), args.Error(1)
}

// ---------- Recording sink ----------

type recordingSink struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (s *recordingSink) Notify(n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
}

func (s *recordingSink) All() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notification(nil), s.got...)
}

// ---------- Helpers ----------

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func params(page int, search string) model.ListBackupsParams {
	return model.ListBackupsParams{Page: page, Limit: model.DefaultPageSize, Search: search}
}

func backupPage(page, total int, ids ...string) *model.BackupPage {
	p := &model.BackupPage{
		Data:       make([]model.Backup, 0, len(ids)),
		Pagination: model.Pagination{Page: page, Limit: model.DefaultPageSize, Total: total},
	}
	for _, id := range ids {
		p.Data = append(p.Data, model.Backup{ID: id, ConnectionID: "c1", Status: model.StatusCompleted})
	}
	return p
}

func ids(backups []model.Backup) []string {
	out := make([]string, 0, len(backups))
	for _, b := range backups {
		out = append(out, b.ID)
	}
	return out
}

func newTestCache(t *testing.T) *querycache.Cache {
	t.Helper()
	c := querycache.New(zerolog.Nop(), querycache.WithRetry(0, 0), querycache.WithGCTime(0))
	t.Cleanup(c.Close)
	return c
}

func newTestOrchestrator(t *testing.T, cache *querycache.Cache, api API, opts ...Option) (*Orchestrator, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	o, err := New(cache, api, sink, zerolog.Nop(), opts...)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o, sink
}

// waitLoaded blocks until the orchestrator shows non-placeholder data.
func waitLoaded(t *testing.T, o *Orchestrator) State {
	t.Helper()
	require.Eventually(t, func() bool {
		s := o.State()
		return s.Backups != nil && !s.IsPlaceholderData
	}, waitFor, tick)
	return o.State()
}
