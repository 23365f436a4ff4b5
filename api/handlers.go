package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/railradar/locotrack/collector"
	"github.com/railradar/locotrack/fois"
	"github.com/railradar/locotrack/store"
)

// historyLimit caps history responses, matching what the map frontend
// can usefully draw.
const historyLimit = 200

type healthResponse struct {
	Status         string `json:"status"`
	LastCycleEpoch int64  `json:"last_cycle_epoch"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		LastCycleEpoch: s.live.LastCycleEpoch(),
	})
}

// handleLiveLoco serves the on-demand path: a synchronous upstream
// fetch for one locomotive, cached in the background by the collector.
func (s *Server) handleLiveLoco(w http.ResponseWriter, r *http.Request) {
	locoNo, ok := numericParam(w, r, "locoID")
	if !ok {
		return
	}
	obs, err := s.live.FetchLive(r.Context(), locoNo)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, obs)
	case errors.Is(err, collector.ErrNoData), errors.Is(err, fois.ErrInvalidPosition):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Message: "Loco not found or has no position data on the FOIS/RTIS server.",
		})
	default:
		log.Error().Err(err).Int("loco", locoNo).Msg("live lookup failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Message: "Failed to fetch live data from FOIS.",
		})
	}
}

func (s *Server) handleSearchLoco(w http.ResponseWriter, r *http.Request) {
	locoNo, ok := numericParam(w, r, "locoID")
	if !ok {
		return
	}
	obs, err := s.store.LatestByLoco(locoNo)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, obs)
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Loco not found in database"})
	default:
		log.Error().Err(err).Int("loco", locoNo).Msg("loco search failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Server error"})
	}
}

func (s *Server) handleSearchTrain(w http.ResponseWriter, r *http.Request) {
	trainNo, ok := numericParam(w, r, "trainID")
	if !ok {
		return
	}
	obs, err := s.store.LatestByTrain(trainNo)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, obs)
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Train not found in database"})
	default:
		log.Error().Err(err).Int("train", trainNo).Msg("train search failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Server error"})
	}
}

func (s *Server) handleLocoHistory(w http.ResponseWriter, r *http.Request) {
	locoNo, ok := numericParam(w, r, "locoID")
	if !ok {
		return
	}
	limit := historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < historyLimit {
			limit = n
		}
	}
	history, err := s.store.History(locoNo, limit)
	if err != nil {
		log.Error().Err(err).Int("loco", locoNo).Msg("history query failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Error fetching historical data"})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func numericParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "A numeric " + name + " is required."})
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
