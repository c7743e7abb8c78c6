package triggers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/snitchlab/snitchbot/internal/analysis"
)

// Analyzer is the slice of the analysis runner the HTTP surface needs.
type Analyzer interface {
	RunDaily(ctx context.Context, chatID int64) error
	RunDecay(ctx context.Context, chatID int64) error
	SweepDaily(ctx context.Context) error
	SweepDecay(ctx context.Context) error
}

// Server exposes the manual analysis triggers. Every mutating endpoint
// requires the shared secret header; a request naming a chat runs that
// chat only, an empty body sweeps all active chats.
type Server struct {
	srv    *http.Server
	runner Analyzer
	secret string
	logger *log.Entry
}

type triggerRequest struct {
	ChatID int64 `json:"chat_id"`
}

func NewServer(addr string, runner Analyzer, secret string) *Server {
	s := &Server{
		runner: runner,
		secret: secret,
		logger: log.WithField("context", "triggers"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleHealth)
	mux.HandleFunc("POST /analyze_daily", s.authorized(s.handleDaily))
	mux.HandleFunc("POST /weekly_decay", s.authorized(s.handleDecay))
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Start(_ context.Context) error {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("trigger server stopped")
		}
	}()
	s.logger.WithField("addr", s.srv.Addr).Info("trigger server listening")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.secret == "" || r.Header.Get("X-Secret-Token") != s.secret {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	s.runTrigger(w, r, s.runner.RunDaily, s.runner.SweepDaily)
}

func (s *Server) handleDecay(w http.ResponseWriter, r *http.Request) {
	s.runTrigger(w, r, s.runner.RunDecay, s.runner.SweepDecay)
}

func (s *Server) runTrigger(
	w http.ResponseWriter,
	r *http.Request,
	one func(context.Context, int64) error,
	all func(context.Context) error,
) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request body"})
		return
	}

	var err error
	if req.ChatID != 0 {
		err = one(r.Context(), req.ChatID)
	} else {
		err = all(r.Context())
	}
	switch {
	case errors.Is(err, analysis.ErrLockHeld):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "analysis already running"})
	case err != nil:
		s.logger.WithError(err).Error("trigger failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "analysis failed"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "done"})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
