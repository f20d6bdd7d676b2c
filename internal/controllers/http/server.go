package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Agrid-Dev/parasweep/internal/ports"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

type Server struct {
	svc      ports.SweepService
	srv      *http.Server
	project  string
	defaults sweep.Form
	log      *slog.Logger

	watchInterval time.Duration
}

// New returns a runnable server. defaults pre-fills the sweep form.
func New(svc ports.SweepService, addr string, project string, defaults sweep.Form, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	s := &Server{svc: svc, project: project, defaults: defaults, log: logger, watchInterval: defaultWatchInterval}

	// Form UI
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST /run", s.handlePostRun)

	// JSON API
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("POST /v1/runs", s.handlePostRuns)
	mux.HandleFunc("GET /v1/watch", s.handleWatch)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type progressDTO struct {
	Project    string             `json:"project"`
	SweepID    string             `json:"sweep_id"`
	State      string             `json:"state"`
	Current    int                `json:"current"`
	Total      int                `json:"total"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	Scenario   map[string]float64 `json:"scenario,omitempty"`
	OutputFile string             `json:"output_file,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
}

func toDTO(p sweep.Progress) progressDTO {
	return progressDTO{
		SweepID:    p.SweepID,
		State:      p.State.String(),
		Current:    p.Current,
		Total:      p.Total,
		Succeeded:  p.Succeeded,
		Failed:     p.Failed,
		Scenario:   p.Scenario,
		OutputFile: p.OutputFile,
		LastError:  p.LastError,
	}
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondProgress(w, http.StatusOK)
}

func (s *Server) handlePostRuns(w http.ResponseWriter, r *http.Request) {
	// body: {"value": {"wall": {"start": "0.2", "end": "0.5", "step": "0.1"}, ...}}
	postValue(s, w, r, func(f sweep.Form) error {
		return s.svc.Start(f)
	})
}

func (s *Server) handlePostRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderPage(w, http.StatusBadRequest, s.defaults, err)
		return
	}
	form := formFromValues(r.PostForm)
	if err := s.svc.Start(form); err != nil {
		s.log.Warn("sweep rejected", "err", err)
		s.renderPage(w, statusFor(err), form, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ---- generic helpers ----
func (s *Server) respondProgress(w http.ResponseWriter, code int) {
	dto := toDTO(s.svc.Get())
	dto.Project = s.project
	writeJSON(w, code, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, statusFor(err), err.Error())
		return
	}

	s.respondProgress(w, http.StatusAccepted)
}

func statusFor(err error) int {
	if errors.Is(err, sweep.ErrSweepRunning) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
