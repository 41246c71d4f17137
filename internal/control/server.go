// Package control exposes the running tracker over a loopback HTTP API and
// provides the client used by the CLI.
package control

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/ayoisaiah/codetime/internal/metrics"
	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/timeutil"
	"github.com/ayoisaiah/codetime/syncer"
)

// Engine is the tracker as seen by the API.
type Engine interface {
	Status() models.Status
	SetFocused(ctx context.Context, focused bool) (models.Status, error)
	SetLanguage(ctx context.Context, language string) (models.Status, error)
	Toggle(ctx context.Context) (models.Status, error)
	SetEnabled(ctx context.Context, enabled bool) (models.Status, error)
	ResetToday(ctx context.Context) (models.Status, error)
	ResetProject(ctx context.Context) (models.Status, error)
	SetUsername(ctx context.Context, username string) (models.Status, error)
	Sync(ctx context.Context) (syncer.Result, models.Status, error)
}

// Reader serves the read-only reports.
type Reader interface {
	DayRange(start, end string) ([]models.DayTotals, error)
	Projects() (map[string]int64, error)
}

// Server is the control API.
type Server struct {
	engine Engine
	reader Reader
	log    *slog.Logger
	srv    *http.Server
}

type (
	focusRequest struct {
		Focused bool `json:"focused"`
	}

	languageRequest struct {
		Language string `json:"language"`
	}

	loginRequest struct {
		Username string `json:"username"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}

	// SyncReply is returned by POST /sync.
	SyncReply struct {
		Status  models.Status `json:"status"`
		Days    int           `json:"days"`
		OK      bool          `json:"ok"`
		Skipped bool          `json:"skipped"`
	}
)

// httpError carries a status code through a handler's error return.
type httpError struct {
	err  error
	code int
}

func (e *httpError) Error() string {
	return e.err.Error()
}

func (e *httpError) Unwrap() error {
	return e.err
}

func badRequest(err error) error {
	return &httpError{err: err, code: http.StatusBadRequest}
}

type errorHandler func(w http.ResponseWriter, r *http.Request) error

func (h errorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h(w, r)
	if err == nil {
		return
	}

	code := http.StatusInternalServerError

	var hErr *httpError

	switch {
	case errors.As(err, &hErr):
		code = hErr.code
	case errors.Is(err, syncer.ErrSyncInProgress):
		code = http.StatusConflict
	}

	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v)
	if err != nil {
		return badRequest(err)
	}

	return nil
}

// NewServer returns a control API listening on addr.
func NewServer(addr string, engine Engine, reader Reader, logger *slog.Logger) *Server {
	s := &Server{
		engine: engine,
		reader: reader,
		log:    logger,
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Method(http.MethodGet, "/status", errorHandler(s.status))
	r.Method(http.MethodGet, "/stats", errorHandler(s.stats))
	r.Method(http.MethodGet, "/projects", errorHandler(s.projects))

	r.Method(http.MethodPost, "/focus", errorHandler(s.focus))
	r.Method(http.MethodPost, "/language", errorHandler(s.language))
	r.Method(http.MethodPost, "/sync", errorHandler(s.sync))
	r.Method(http.MethodPost, "/toggle", s.statusAction(s.engine.Toggle))
	r.Method(http.MethodPost, "/pause", s.statusAction(func(ctx context.Context) (models.Status, error) {
		return s.engine.SetEnabled(ctx, false)
	}))
	r.Method(http.MethodPost, "/resume", s.statusAction(func(ctx context.Context) (models.Status, error) {
		return s.engine.SetEnabled(ctx, true)
	}))
	r.Method(http.MethodPost, "/login", errorHandler(s.login))

	r.Route("/reset", func(r chi.Router) {
		r.Method(http.MethodPost, "/today", s.statusAction(s.engine.ResetToday))
		r.Method(http.MethodPost, "/project", s.statusAction(s.engine.ResetProject))
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Debug(
			"control request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) statusAction(
	fn func(ctx context.Context) (models.Status, error),
) errorHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		st, err := fn(r.Context())
		if err != nil {
			return err
		}

		writeJSON(w, http.StatusOK, st)

		return nil
	}
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, s.engine.Status())
	return nil
}

func (s *Server) focus(w http.ResponseWriter, r *http.Request) error {
	var req focusRequest

	if err := decode(w, r, &req); err != nil {
		return err
	}

	return s.statusAction(func(ctx context.Context) (models.Status, error) {
		return s.engine.SetFocused(ctx, req.Focused)
	})(w, r)
}

func (s *Server) language(w http.ResponseWriter, r *http.Request) error {
	var req languageRequest

	if err := decode(w, r, &req); err != nil {
		return err
	}

	return s.statusAction(func(ctx context.Context) (models.Status, error) {
		return s.engine.SetLanguage(ctx, req.Language)
	})(w, r)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest

	if err := decode(w, r, &req); err != nil {
		return err
	}

	if req.Username == "" {
		return badRequest(errors.New("username is required"))
	}

	return s.statusAction(func(ctx context.Context) (models.Status, error) {
		return s.engine.SetUsername(ctx, req.Username)
	})(w, r)
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) error {
	res, st, err := s.engine.Sync(r.Context())
	if err != nil {
		if errors.Is(err, syncer.ErrSyncInProgress) {
			return err
		}

		return &httpError{err: err, code: http.StatusBadGateway}
	}

	writeJSON(w, http.StatusOK, SyncReply{
		Status:  st,
		Days:    res.Days,
		OK:      res.OK,
		Skipped: res.Skipped,
	})

	return nil
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) error {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	for _, day := range []string{start, end} {
		if _, err := timeutil.ParseDay(day); err != nil {
			return badRequest(err)
		}
	}

	days, err := s.reader.DayRange(start, end)
	if err != nil {
		return err
	}

	if days == nil {
		days = []models.DayTotals{}
	}

	writeJSON(w, http.StatusOK, days)

	return nil
}

func (s *Server) projects(w http.ResponseWriter, _ *http.Request) error {
	p, err := s.reader.Projects()
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, p)

	return nil
}

// ListenAndServe serves the API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "control API listening", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
