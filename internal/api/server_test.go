package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roruizf/yahoo-finance-stock-db/internal/database"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

func newTestServer(t *testing.T) (*Server, *database.SQLiteClient) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	db, err := database.NewSQLiteClient(&config.StoreConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Server.Port = 8080

	return NewServer(cfg, log, db, nil, nil), db
}

func seedSeries(t *testing.T, db *database.SQLiteClient) models.SeriesKey {
	t.Helper()
	ctx := context.Background()

	key, err := models.NewSeriesKey("AAPL", models.Interval1d)
	require.NoError(t, err)
	require.NoError(t, db.EnsureSeriesTable(ctx, key))

	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err = db.MergeBars(ctx, key, []models.Bar{
		{Timestamp: ts, Open: 184, High: 186, Low: 183, Close: 185, AdjClose: 185, Volume: 1000},
		{Timestamp: ts.AddDate(0, 0, 1), Open: 185, High: 187, Low: 184, Close: 186, AdjClose: 186, Volume: 1100},
	})
	require.NoError(t, err)

	return key
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleListSeries(t *testing.T) {
	s, db := newTestServer(t)
	seedSeries(t, db)

	rec := doRequest(s, http.MethodGet, "/api/v1/series")
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []seriesInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "AAPL_1d", infos[0].Table)
	assert.Equal(t, 2, infos[0].Bars)
	assert.Equal(t, "2024-01-03", infos[0].MaxKey)
}

func TestHandleSeriesBars(t *testing.T) {
	s, db := newTestServer(t)
	seedSeries(t, db)

	rec := doRequest(s, http.MethodGet, "/api/v1/series/AAPL_1d/bars?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var bars []models.BarRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bars))
	require.Len(t, bars, 1)
	assert.Equal(t, "2024-01-03", bars[0].Key)
}

func TestHandleSeriesBarsUnknownTable(t *testing.T) {
	s, db := newTestServer(t)
	seedSeries(t, db)

	rec := doRequest(s, http.MethodGet, "/api/v1/series/MSFT_1d/bars")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/series/AAPL_3x/bars")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLatestBar(t *testing.T) {
	s, db := newTestServer(t)
	seedSeries(t, db)

	rec := doRequest(s, http.MethodGet, "/api/v1/series/AAPL_1d/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var bar models.BarRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bar))
	assert.Equal(t, "2024-01-03", bar.Key)
}

func TestHandleForceSyncWithoutUpdater(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/sync")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
