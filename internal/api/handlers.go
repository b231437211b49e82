package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gethomeport/resmon/internal/alert"
	"github.com/gethomeport/resmon/internal/monitor"
	"github.com/gethomeport/resmon/internal/version"
)

// Response helpers

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// Status endpoint

type StatusResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Paused     bool              `json:"paused"`
	Thresholds alert.Thresholds  `json:"thresholds"`
	Snapshot   *monitor.Snapshot `json:"snapshot,omitempty"`
	Config     StatusConfig      `json:"config"`
}

type StatusConfig struct {
	Interval string `json:"interval"`
	Cooldown string `json:"cooldown"`
	TopN     int    `json:"top_n"`
	DiskPath string `json:"disk_path"`
	LogFile  string `json:"log_file"`
	DevMode  bool   `json:"dev_mode"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:     "ok",
		Version:    version.GetVersion(),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Paused:     s.monitor.Paused(),
		Thresholds: s.monitor.Thresholds(),
		Config: StatusConfig{
			Interval: s.cfg.Interval.String(),
			Cooldown: s.cfg.Cooldown.String(),
			TopN:     s.cfg.TopN,
			DiskPath: s.cfg.DiskPath,
			LogFile:  s.alerts.Path(),
			DevMode:  s.cfg.DevMode,
		},
	}
	if snap, err := s.monitor.Latest(); err == nil {
		resp.Snapshot = &snap
	}

	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.monitor.Latest()
	if errors.Is(err, monitor.ErrNoSnapshot) {
		errorResponse(w, http.StatusNotFound, "No snapshot yet")
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, snap)
}

// Thresholds

// thresholdInput accepts a JSON string or a bare number so both
// {"cpu":"90"} and {"cpu":90} reach the same parser.
type thresholdInput string

func (t *thresholdInput) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = thresholdInput(s)
		return nil
	}
	*t = thresholdInput(strings.TrimSpace(string(b)))
	return nil
}

type UpdateThresholdsRequest struct {
	CPU  thresholdInput `json:"cpu"`
	RAM  thresholdInput `json:"ram"`
	Disk thresholdInput `json:"disk"`
}

func (s *Server) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.monitor.Thresholds())
}

func (s *Server) handleUpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var req UpdateThresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.activity.LogThresholdRejected("invalid request body")
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	th, err := s.monitor.UpdateThresholds(string(req.CPU), string(req.RAM), string(req.Disk))
	if err != nil {
		s.activity.LogThresholdRejected(err.Error())
		errorResponse(w, http.StatusBadRequest, "Please enter valid integer values between 0 and 100 for thresholds")
		return
	}

	s.activity.LogThresholdUpdate(th)
	jsonResponse(w, http.StatusOK, th)
}

// Pause / resume

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.monitor.Pause()
	s.activity.LogPause()
	jsonResponse(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.monitor.Resume()
	s.activity.LogResume()
	jsonResponse(w, http.StatusOK, map[string]bool{"paused": false})
}

// Alert log

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	lines, err := s.alerts.Lines(queryLimit(r, 100, 10000))
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to read alert log")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"path":  s.alerts.Path(),
		"lines": lines,
	})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if err := s.alerts.Clear(); err != nil {
		s.log.Error("failed to clear alert log", "error", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to clear alert log")
		return
	}
	if err := s.store.ClearAlerts(r.Context()); err != nil {
		s.log.Error("failed to clear alert history", "error", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to clear alert history")
		return
	}

	s.activity.LogClear()
	jsonResponse(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Alert history

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	var resource string
	if q := r.URL.Query().Get("resource"); q != "" {
		res, ok := alert.ParseResource(q)
		if !ok {
			errorResponse(w, http.StatusBadRequest, "Unknown resource: "+q)
			return
		}
		resource = string(res)
	}

	alerts, err := s.store.ListAlerts(r.Context(), resource, queryLimit(r, 100, 1000))
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, alerts)
}

// Activity

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.activity.Recent(queryLimit(r, 50, 100)))
}

// Version

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, version.GetInfo())
}
