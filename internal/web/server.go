// Package web serves the heater's status page and remote controls over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/sweeney/halo-heater/internal/journal"
	"github.com/sweeney/halo-heater/internal/logger"
	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/settings"
	"github.com/sweeney/halo-heater/internal/status"
)

// MaxHistoryLimit is the largest limit /history.json accepts.
const MaxHistoryLimit = 1000

// Controller applies remote commands to the device.
type Controller interface {
	TogglePower(source string) logic.Device
	UpdateSettings(source string, rec settings.Record) (logic.Device, error)
}

// History lists recent journal entries.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctrl       Controller
	history    History
	log        *logger.Logger
}

// New creates a Server that reads state from the given tracker and sends
// commands to ctrl. history may be nil.
func New(addr string, tracker *status.Tracker, ctrl Controller, history History, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{tracker: tracker, ctrl: ctrl, history: history, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.handleJSON)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /history.json", s.handleHistory)
	mux.HandleFunc("POST /toggle_power", s.handleTogglePower)
	mux.HandleFunc("POST /update_settings", s.handleUpdateSettings)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.Warnw("render status page", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	data, err := status.FormatCompact(s.tracker.Snapshot().Device)
	if err != nil {
		s.log.Errorw("encode status", "error", err)
		http.Error(w, "status unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := journal.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > MaxHistoryLimit {
			http.Error(w, fmt.Sprintf("limit must be between 1 and %d", MaxHistoryLimit), http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries := []journal.Entry{}
	if s.history != nil {
		var err error
		entries, err = s.history.Recent(r.Context(), limit)
		if err != nil {
			s.log.Errorw("read journal", "error", err)
			http.Error(w, "journal unavailable", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (s *Server) handleTogglePower(w http.ResponseWriter, r *http.Request) {
	s.ctrl.TogglePower(logic.SourceHTTP)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := parseSettingsForm(r.PostForm)
	if err != nil {
		s.log.Warnw("rejected settings form", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.ctrl.UpdateSettings(logic.SourceHTTP, rec); err != nil {
		code := http.StatusInternalServerError
		if isValidationError(err) {
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func isValidationError(err error) bool {
	return errors.Is(err, settings.ErrInvalidPercentage) ||
		errors.Is(err, settings.ErrInvalidComfort) ||
		errors.Is(err, settings.ErrInvalidThreshold)
}
