package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

type seriesInfo struct {
	Table    string `json:"table"`
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Bars     int    `json:"bars"`
	MaxKey   string `json:"max_key,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Warn("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth reports store (and cache, when configured) health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"store": "ok"}
	code := http.StatusOK

	if err := s.db.Health(r.Context()); err != nil {
		status["store"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	if s.cache != nil {
		status["cache"] = "ok"
		if err := s.cache.Health(r.Context()); err != nil {
			status["cache"] = err.Error()
		}
	}

	s.writeJSON(w, code, status)
}

// handleListSeries lists every series table with its row count and
// latest key.
func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	keys, err := s.db.ListSeriesTables(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	infos := make([]seriesInfo, 0, len(keys))
	for _, key := range keys {
		info := seriesInfo{
			Table:    key.TableName(),
			Symbol:   key.Symbol,
			Interval: key.Interval.String(),
		}
		if count, err := s.db.CountBars(r.Context(), key); err == nil {
			info.Bars = count
		}
		if maxKey, err := s.db.MaxKey(r.Context(), key); err == nil {
			info.MaxKey = maxKey
		}
		infos = append(infos, info)
	}

	s.writeJSON(w, http.StatusOK, infos)
}

// handleSeriesBars returns the most recent stored bars of one series in
// ascending key order.
func (s *Server) handleSeriesBars(w http.ResponseWriter, r *http.Request) {
	key, ok := s.seriesFromRequest(w, r)
	if !ok {
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	bars, err := s.db.BarRows(r.Context(), key, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bars == nil {
		bars = []models.BarRow{}
	}

	s.writeJSON(w, http.StatusOK, bars)
}

// handleLatestBar serves the newest bar of a series, from the cache when
// possible, falling back to the store.
func (s *Server) handleLatestBar(w http.ResponseWriter, r *http.Request) {
	key, ok := s.seriesFromRequest(w, r)
	if !ok {
		return
	}

	if s.cache != nil {
		if bar, err := s.cache.GetLatestBar(r.Context(), key.TableName()); err == nil && bar != nil {
			s.writeJSON(w, http.StatusOK, bar)
			return
		}
	}

	bars, err := s.db.BarRows(r.Context(), key, 1)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(bars) == 0 {
		s.writeError(w, http.StatusNotFound, "series has no bars")
		return
	}

	s.writeJSON(w, http.StatusOK, bars[0])
}

// handleSyncStatus returns the last recorded sync outcome per series.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.db.GetSyncStatuses(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if statuses == nil {
		statuses = []*models.SyncStatus{}
	}

	s.writeJSON(w, http.StatusOK, statuses)
}

// handleForceSync triggers an immediate sync cycle in the background.
func (s *Server) handleForceSync(w http.ResponseWriter, r *http.Request) {
	if s.updater == nil {
		s.writeError(w, http.StatusServiceUnavailable, "sync updater not running")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		s.updater.ForceCycle(ctx)
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync started"})
}

// seriesFromRequest resolves the {table} path variable into a validated
// series key backed by an existing table.
func (s *Server) seriesFromRequest(w http.ResponseWriter, r *http.Request) (models.SeriesKey, bool) {
	name := mux.Vars(r)["table"]

	key, err := models.ParseTableName(name)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return models.SeriesKey{}, false
	}

	exists, err := s.db.TableExists(r.Context(), key.TableName())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return models.SeriesKey{}, false
	}
	if !exists {
		s.writeError(w, http.StatusNotFound, "unknown series "+name)
		return models.SeriesKey{}, false
	}

	return key, true
}
