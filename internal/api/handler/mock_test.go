package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/backupdash/internal/backups"
	"github.com/edvin/backupdash/internal/model"
)

type mockBackups struct {
	mock.Mock
}

func (m *mockBackups) State() backups.State {
	return m.Called().Get(0).(backups.State)
}

func (m *mockBackups) SetPage(page int) error {
	return m.Called(page).Error(0)
}

func (m *mockBackups) SetSearch(search string) error {
	return m.Called(search).Error(0)
}

func (m *mockBackups) Refresh() {
	m.Called()
}

func (m *mockBackups) Watch(fn func(backups.State)) func() {
	args := m.Called(fn)
	return args.Get(0).(func())
}

func (m *mockBackups) CreateBackup(connectionID string) (*backups.Result, error) {
	args := m.Called(connectionID)
	return resultArg(args), args.Error(1)
}

func (m *mockBackups) CreateSchedule(params model.ScheduleBackupParams) (*backups.Result, error) {
	args := m.Called(params)
	return resultArg(args), args.Error(1)
}

func (m *mockBackups) UpdateExistingSchedule(connectionID string, params model.UpdateScheduleParams) (*backups.Result, error) {
	args := m.Called(connectionID, params)
	return resultArg(args), args.Error(1)
}

func (m *mockBackups) DisableSchedule(connectionID string) (*backups.Result, error) {
	args := m.Called(connectionID)
	return resultArg(args), args.Error(1)
}

func resultArg(args mock.Arguments) *backups.Result {
	if r, ok := args.Get(0).(*backups.Result); ok {
		return r
	}
	return nil
}

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) IsAuthenticated() bool { return m.Called().Bool(0) }
func (m *mockSessionStore) Save(token string) error { return m.Called(token).Error(0) }
func (m *mockSessionStore) Clear() error { return m.Called().Error(0) }

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) Invalidate(family string) int { return m.Called(family).Int(0) }

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) Render(ctx context.Context, search string) ([]byte, int, error) {
	args := m.Called(ctx, search)
	body, _ := args.Get(0).([]byte)
	return body, args.Int(1), args.Error(2)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, name string, body []byte) (string, error) {
	args := m.Called(ctx, name, body)
	return args.String(0), args.Error(1)
}

type fakeConnections struct {
	state backups.ConnectionsState
}

func (f fakeConnections) State() backups.ConnectionsState { return f.state }

func (f fakeConnections) Find(id string) (model.Connection, bool) {
	for _, c := range f.state.Connections {
		if c.ID == id {
			return c, true
		}
	}
	return model.Connection{}, false
}

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}
