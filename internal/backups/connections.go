package backups

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/backupdash/internal/model"
	"github.com/edvin/backupdash/internal/querycache"
)

// ConnectionsState is a snapshot of the connections list.
type ConnectionsState struct {
	Connections []model.Connection
	IsLoading   bool
	Error       error
}

// Connections keeps the connections family subscribed so schedule mutations
// refresh it right away.
type Connections struct {
	cache *querycache.Cache
	sub   *querycache.Subscription
}

func NewConnections(cache *querycache.Cache, api API, logger zerolog.Logger) (*Connections, error) {
	sub, err := cache.Subscribe(ConnectionsKey, connectionsLoader(api), nil)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("component", "connections").Msg("subscribed to connections")
	return &Connections{cache: cache, sub: sub}, nil
}

func (c *Connections) State() ConnectionsState {
	st := c.cache.Peek(ConnectionsKey)
	s := ConnectionsState{Error: st.Err}
	if st.HasValue {
		s.Connections = st.Value.([]model.Connection)
	} else {
		s.IsLoading = st.IsFetching
	}
	return s
}

// Find returns the connection with the given ID from the cached list.
func (c *Connections) Find(id string) (model.Connection, bool) {
	for _, conn := range c.State().Connections {
		if conn.ID == id {
			return conn, true
		}
	}
	return model.Connection{}, false
}

func (c *Connections) Close() {
	c.sub.Unsubscribe()
}

// Warm loads the first history page and the connections list concurrently
// so the dashboard opens with data.
func Warm(ctx context.Context, cache *querycache.Cache, api API) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := FetchPage(ctx, cache, api, model.ListBackupsParams{Page: 1, Limit: model.DefaultPageSize})
		return err
	})
	g.Go(func() error {
		_, err := FetchConnections(ctx, cache, api)
		return err
	})
	return g.Wait()
}
