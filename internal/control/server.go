package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/five82/notebook/internal/filesync"
	"github.com/five82/notebook/internal/state"
)

// Controller is the part of a sync session the API drives.
type Controller interface {
	Status() state.SyncStatus
	Store() *state.Store
	Capabilities() filesync.Capabilities
	Delay() time.Duration
	Setup(ctx context.Context, opts filesync.SetupOptions) bool
	ManualSync(ctx context.Context) (filesync.PassResult, error)
	Pause() bool
	Resume(ctx context.Context) bool
	Disable()
	Reset()
	ListFiles(ctx context.Context) ([]filesync.FileInfo, error)
}

var _ Controller = (*filesync.Session)(nil)

const (
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 16
)

// Server exposes a Controller over HTTP.
type Server struct {
	ctrl   Controller
	log    *zap.Logger
	router chi.Router
}

// NewServer wires the routes.
func NewServer(ctrl Controller, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{ctrl: ctrl, log: log.Named("control")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/status/stream", s.handleStream)
		r.Get("/capabilities", s.handleCapabilities)
		r.Get("/files", s.handleFiles)
		r.Post("/setup", s.handleSetup)
		r.Post("/sync", s.handleSync)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/disable", s.handleDisable)
		r.Post("/reset", s.handleReset)
	})
	r.Handle("/metrics", promhttp.Handler())
	s.router = r
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("control api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewStatusResponse(s.ctrl.Status()))
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	caps := s.ctrl.Capabilities()
	writeJSON(w, http.StatusOK, CapabilitiesResponse{
		Supported:     caps.Supported(),
		Sandboxed:     caps.Sandboxed,
		UserSelection: caps.UserSelection,
		DelayMS:       s.ctrl.Delay().Milliseconds(),
	})
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid setup request: "+err.Error())
		return
	}
	ctx := r.Context()
	opts := filesync.SetupOptions{ForceManual: req.ForceManual}
	if dir := strings.TrimSpace(req.Directory); dir != "" {
		ctx = filesync.WithDirectory(ctx, dir)
		opts.ForceManual = true
	}
	ok := s.ctrl.Setup(ctx, opts)
	writeJSON(w, http.StatusOK, SetupResponse{OK: ok, Status: NewStatusResponse(s.ctrl.Status())})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctrl.ManualSync(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp := SyncResponse{Written: res.Written, Failed: res.Failed, Status: NewStatusResponse(s.ctrl.Status())}
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	if !s.ctrl.Pause() {
		writeError(w, http.StatusConflict, filesync.ErrNotSetup.Error())
		return
	}
	writeJSON(w, http.StatusOK, NewStatusResponse(s.ctrl.Status()))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if !s.ctrl.Resume(r.Context()) {
		writeError(w, http.StatusConflict, "sync is not paused")
		return
	}
	writeJSON(w, http.StatusOK, NewStatusResponse(s.ctrl.Status()))
}

func (s *Server) handleDisable(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.Disable()
	writeJSON(w, http.StatusOK, NewStatusResponse(s.ctrl.Status()))
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.Reset()
	writeJSON(w, http.StatusOK, NewStatusResponse(s.ctrl.Status()))
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.ctrl.ListFiles(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if files == nil {
		files = []filesync.FileInfo{}
	}
	writeJSON(w, http.StatusOK, FilesResponse{Files: files})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, filesync.ErrNotSetup), errors.Is(err, filesync.ErrResetupRequired):
		return http.StatusConflict
	case errors.Is(err, filesync.ErrPassFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
