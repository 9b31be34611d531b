package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrisense/agrisense-core/internal/scheduler"
)

// handleHealth reports process health: database reachability and link state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	dbState := "ok"
	if err := s.db.HealthCheck(r.Context()); err != nil {
		dbState = err.Error()
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, map[string]any{
		"database":    dbState,
		"link":        s.controller.State().String(),
		"subscribers": s.hub.ClientCount(),
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"devices": s.devices.All()})
}

type controlRequest struct {
	Status bool `json:"status"`
}

// handleControlDevice publishes a control command. The response reports
// delivery to the broker, not actuation; actuation is confirmed by the
// device's status echo arriving over the realtime feed.
func (s *Server) handleControlDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device")
	if !s.devices.Known(deviceID) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown device %q", deviceID))
		return
	}

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	delivered := s.controller.ControlDevice(deviceID, req.Status)
	status := http.StatusOK
	if !delivered {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, map[string]any{
		"device":    deviceID,
		"requested": req.Status,
		"delivered": delivered,
	})
}

func (s *Server) handleLatestData(w http.ResponseWriter, r *http.Request) {
	reading, ok := s.telemetry.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "no readings recorded yet")
		return
	}
	respondJSON(w, http.StatusOK, reading)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Telemetry.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	history, err := s.history.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if s.forecaster == nil {
		respondError(w, http.StatusNotImplemented, "no forecast upstream configured")
		return
	}
	forecast, err := s.forecaster.FiveDayForecast(r.Context())
	if err != nil {
		s.logger.Warn("forecast lookup failed", "error", err)
		respondError(w, http.StatusBadGateway, "forecast lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, forecast)
}

type timerRequest struct {
	Device string `json:"device"`
	OnAt   string `json:"on_at"`
	OffAt  string `json:"off_at"`
	Daily  bool   `json:"daily"`
}

func (s *Server) handleSetTimer(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc := s.cfg.Location()
	onAt, err := parseTimerTime(req.OnAt, loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("on_at: %v", err))
		return
	}
	offAt, err := parseTimerTime(req.OffAt, loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("off_at: %v", err))
		return
	}

	entry := scheduler.Entry{
		Device:  req.Device,
		OnAt:    onAt,
		OffAt:   offAt,
		Daily:   req.Daily,
		Enabled: true,
	}
	if err := s.timers.SetTimer(r.Context(), entry); err != nil {
		respondSchedulerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

type clearTimerRequest struct {
	Device string `json:"device"`
}

func (s *Server) handleClearTimer(w http.ResponseWriter, r *http.Request) {
	var req clearTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.timers.ClearTimer(r.Context(), req.Device); err != nil {
		respondSchedulerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"device": req.Device, "status": "cleared"})
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device")
	entry, err := s.timers.GetTimer(r.Context(), deviceID)
	if err != nil {
		respondSchedulerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleListTimers(w http.ResponseWriter, r *http.Request) {
	entries, err := s.timers.ListTimers(r.Context())
	if err != nil {
		s.logger.Error("timer list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "timer list failed")
		return
	}
	if entries == nil {
		entries = []scheduler.Entry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"timers": entries})
}

func respondSchedulerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrUnknownDevice):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrTimerNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrInvalidWindow):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseTimerTime accepts either RFC 3339 or a bare wall-clock "15:04",
// which is anchored to today in the site timezone. Daily timers only use
// the wall-clock portion either way.
func parseTimerTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("15:04", value, loc)
	if err != nil {
		return time.Time{}, errors.New("expected RFC 3339 or HH:MM")
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
