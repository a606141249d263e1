package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupdash/internal/querycache"
)

type fixedStats querycache.Stats

func (f fixedStats) Stats() querycache.Stats { return querycache.Stats(f) }

func TestRegisterCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterCacheMetrics(reg, fixedStats{Hits: 7, Misses: 2, Fetches: 3, Errors: 1, Entries: 4})

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 7)

	values := make(map[string]float64)
	for _, mf := range families {
		m := mf.GetMetric()[0]
		if m.GetCounter() != nil {
			values[mf.GetName()] = m.GetCounter().GetValue()
		} else {
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 7.0, values["querycache_hits_total"])
	assert.Equal(t, 2.0, values["querycache_misses_total"])
	assert.Equal(t, 3.0, values["querycache_fetches_total"])
	assert.Equal(t, 1.0, values["querycache_errors_total"])
	assert.Equal(t, 0.0, values["querycache_superseded_total"])
	assert.Equal(t, 4.0, values["querycache_entries"])
}

func TestNewServer_Healthz(t *testing.T) {
	srv := NewServer(":0")

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "ok", string(body))

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
