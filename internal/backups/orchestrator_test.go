package backups

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupdash/internal/validate"
)

func TestNew_LoadsFirstPage(t *testing.T) {
	api := &mockAPI{}
	release := make(chan struct{})
	api.On("GetBackups", mock.Anything, params(1, "")).
		Run(func(mock.Arguments) { <-release }).
		Return(backupPage(1, 2, "b2", "b1"), nil).Once()

	o, _ := newTestOrchestrator(t, newTestCache(t), api)

	s := o.State()
	assert.True(t, s.IsLoading)
	assert.Nil(t, s.Backups)
	assert.Nil(t, s.Pagination)
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, 10, s.Limit)
	assert.Empty(t, s.Search)

	close(release)
	s = waitLoaded(t, o)
	assert.False(t, s.IsLoading)
	assert.Equal(t, []string{"b2", "b1"}, ids(s.Backups))
	require.NotNil(t, s.Pagination)
	assert.Equal(t, 2, s.Pagination.Total)
	assert.NoError(t, s.Error)
	api.AssertExpectations(t)
}

func TestNew_SharesCachedPage(t *testing.T) {
	api := &mockAPI{}
	api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 1, "b1"), nil).Once()

	cache := newTestCache(t)
	a, _ := newTestOrchestrator(t, cache, api)
	waitLoaded(t, a)
	b, _ := newTestOrchestrator(t, cache, api)

	assert.Equal(t, []string{"b1"}, ids(b.State().Backups))
	api.AssertNumberOfCalls(t, "GetBackups", 1)
}

func TestFetchError_IsExposedWithoutData(t *testing.T) {
	api := &mockAPI{}
	api.On("GetBackups", mock.Anything, params(1, "")).Return(nil, errors.New("backend down")).Once()

	o, sink := newTestOrchestrator(t, newTestCache(t), api)

	require.Eventually(t, func() bool { return o.State().Error != nil }, waitFor, tick)
	s := o.State()
	assert.EqualError(t, s.Error, "backend down")
	assert.Nil(t, s.Backups)
	assert.False(t, s.IsLoading)
	assert.Empty(t, sink.All(), "fetch errors are not notified")
}

func TestSetSearch_ShowsPreviousPageAsPlaceholder(t *testing.T) {
	api := &mockAPI{}
	release := make(chan struct{})
	api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 12, "b12", "b11"), nil).Once()
	api.On("GetBackups", mock.Anything, params(1, "orders")).
		Run(func(mock.Arguments) { <-release }).
		Return(backupPage(1, 1, "b7"), nil).Once()

	o, _ := newTestOrchestrator(t, newTestCache(t), api)
	waitLoaded(t, o)

	require.NoError(t, o.SetSearch("orders"))

	s := o.State()
	assert.Equal(t, "orders", s.Search)
	assert.True(t, s.IsPlaceholderData)
	assert.False(t, s.IsLoading)
	assert.Equal(t, []string{"b12", "b11"}, ids(s.Backups))
	assert.Equal(t, 12, s.Pagination.Total)

	close(release)
	s = waitLoaded(t, o)
	assert.Equal(t, []string{"b7"}, ids(s.Backups))
	assert.Equal(t, 1, s.Pagination.Total)
	api.AssertExpectations(t)
}

func TestSetSearch_WithoutPlaceholder(t *testing.T) {
	api := &mockAPI{}
	release := make(chan struct{})
	defer close(release)
	api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 1, "b1"), nil).Once()
	api.On("GetBackups", mock.Anything, params(1, "orders")).
		Run(func(mock.Arguments) { <-release }).
		Return(backupPage(1, 0), nil).Once()

	o, _ := newTestOrchestrator(t, newTestCache(t), api, WithPlaceholderData(false))
	waitLoaded(t, o)

	require.NoError(t, o.SetSearch("orders"))
	s := o.State()
	assert.True(t, s.IsLoading)
	assert.False(t, s.IsPlaceholderData)
	assert.Nil(t, s.Backups)
}

func TestSetSearch_KeepsPageThree(t *testing.T) {
	for _, placeholder := range []bool{true, false} {
		t.Run(fmt.Sprintf("placeholder=%t", placeholder), func(t *testing.T) {
			api := &mockAPI{}
			release := make(chan struct{})
			defer close(release)
			api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 30, "b30"), nil).Once()
			api.On("GetBackups", mock.Anything, params(3, "")).Return(backupPage(3, 30, "b10"), nil).Once()
			api.On("GetBackups", mock.Anything, params(3, "orders")).
				Run(func(mock.Arguments) { <-release }).
				Return(backupPage(3, 21, "b3"), nil).Once()

			o, _ := newTestOrchestrator(t, newTestCache(t), api, WithPlaceholderData(placeholder))
			waitLoaded(t, o)
			require.NoError(t, o.SetPage(3))
			waitLoaded(t, o)

			require.NoError(t, o.SetSearch("orders"))

			o.mu.Lock()
			key := o.key
			o.mu.Unlock()
			assert.Equal(t, BackupsKey(params(3, "orders")), key)

			s := o.State()
			assert.Equal(t, 3, s.Page)
			assert.Equal(t, "orders", s.Search)
			assert.Equal(t, !placeholder, s.IsLoading)
			assert.Equal(t, placeholder, s.IsPlaceholderData)
			if placeholder {
				assert.Equal(t, []string{"b10"}, ids(s.Backups))
			} else {
				assert.Nil(t, s.Backups)
			}
		})
	}
}

func TestSetPage(t *testing.T) {
	api := &mockAPI{}
	api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 12, "b12"), nil).Once()
	api.On("GetBackups", mock.Anything, params(2, "")).Return(backupPage(2, 12, "b2"), nil).Once()

	o, _ := newTestOrchestrator(t, newTestCache(t), api)
	waitLoaded(t, o)

	require.NoError(t, o.SetPage(2))
	require.Eventually(t, func() bool {
		s := o.State()
		return !s.IsPlaceholderData && len(s.Backups) == 1 && s.Backups[0].ID == "b2"
	}, waitFor, tick)
	assert.Equal(t, 2, o.State().Page)

	// Going back serves the cached page without a request.
	require.NoError(t, o.SetPage(1))
	s := o.State()
	assert.False(t, s.IsPlaceholderData)
	assert.Equal(t, []string{"b12"}, ids(s.Backups))
	api.AssertExpectations(t)
}

func TestSetPage_RejectsPageBelowOne(t *testing.T) {
	api := &mockAPI{}
	api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 1, "b1"), nil).Once()

	o, _ := newTestOrchestrator(t, newTestCache(t), api)
	waitLoaded(t, o)

	err := o.SetPage(0)
	assert.ErrorIs(t, err, validate.ErrValidation)
	assert.Equal(t, 1, o.State().Page)
}

func TestRefresh_RefetchesCurrentPage(t *testing.T) {
	api := &mockAPI{}
	api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 1, "b1"), nil).Once()
	api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 2, "b2", "b1"), nil).Once()

	o, _ := newTestOrchestrator(t, newTestCache(t), api)
	waitLoaded(t, o)

	o.Refresh()
	require.Eventually(t, func() bool { return len(o.State().Backups) == 2 }, waitFor, tick)
	api.AssertExpectations(t)
}

func TestWatch_ReceivesChanges(t *testing.T) {
	api := &mockAPI{}
	api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 12, "b12"), nil).Once()
	api.On("GetBackups", mock.Anything, params(2, "")).Return(backupPage(2, 12, "b2"), nil).Once()

	o, _ := newTestOrchestrator(t, newTestCache(t), api)

	var mu sync.Mutex
	var last State
	cancel := o.Watch(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		last = s
	})
	defer cancel()

	waitLoaded(t, o)
	require.NoError(t, o.SetPage(2))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last.Page == 2 && !last.IsPlaceholderData && len(last.Backups) == 1 && last.Backups[0].ID == "b2"
	}, waitFor, tick)
}

func TestWatch_CallbackMayCallBack(t *testing.T) {
	api := &mockAPI{}
	api.On("GetBackups", mock.Anything, mock.Anything).Return(backupPage(1, 1, "b1"), nil)

	o, _ := newTestOrchestrator(t, newTestCache(t), api)

	done := make(chan struct{})
	var once sync.Once
	cancel := o.Watch(func(s State) {
		if s.Backups != nil && s.Search == "" {
			assert.NoError(t, o.SetSearch("x"))
		}
		if s.Search == "x" {
			once.Do(func() { close(done) })
		}
	})
	defer cancel()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("watcher was not called back")
	}
}

func TestClose(t *testing.T) {
	api := &mockAPI{}
	api.On("GetBackups", mock.Anything, params(1, "")).Return(backupPage(1, 1, "b1"), nil).Once()

	cache := newTestCache(t)
	o, _ := newTestOrchestrator(t, cache, api)
	waitLoaded(t, o)
	key := BackupsKey(params(1, ""))
	assert.Equal(t, 1, cache.Subscribers(key))

	o.Close()
	o.Close()

	assert.Equal(t, 0, cache.Subscribers(key))
	assert.ErrorIs(t, o.SetPage(2), ErrClosed)
	assert.ErrorIs(t, o.SetSearch("x"), ErrClosed)
	_, err := o.CreateBackup("c1")
	assert.ErrorIs(t, err, ErrClosed)
}
