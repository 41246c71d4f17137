// Package devserver is a local stand-in for the remote aggregator. It speaks
// the same sync contract and keeps its totals in SQLite.
package devserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/ayoisaiah/codetime/internal/metrics"
	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/timeutil"
)

// PushPath is the default path of the sync endpoint.
const PushPath = "/functions/v1/pushToDb"

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	maxBodyBytes            = 1 << 20
)

type (
	pushRequest struct {
		Username string       `json:"username" validate:"required,max=64"`
		Data     []dayRequest `json:"data"     validate:"dive"`
	}

	dayRequest struct {
		LanguageBreakdown map[string]int64 `json:"languageBreakdown" validate:"dive,keys,required,max=64,endkeys,gte=0"`
		Day               string           `json:"day"               validate:"required,datetime=2006-01-02"`
		Source            string           `json:"source"            validate:"omitempty,max=32"`
		FocusedSeconds    int64            `json:"focusedSeconds"    validate:"gte=0"`
		TotalSeconds      int64            `json:"totalSeconds"      validate:"gte=0"`
	}

	failureResponse struct {
		Error   string `json:"error"`
		Success bool   `json:"success"`
	}
)

func (p *pushRequest) payload() *models.Payload {
	out := &models.Payload{
		Username: p.Username,
		Data:     make([]models.DayDelta, 0, len(p.Data)),
	}

	for _, d := range p.Data {
		out.Data = append(out.Data, models.DayDelta{
			LanguageBreakdown: d.LanguageBreakdown,
			Day:               d.Day,
			Source:            d.Source,
			FocusedSeconds:    d.FocusedSeconds,
			TotalSeconds:      d.TotalSeconds,
		})
	}

	return out
}

// Options configures the server.
type Options struct {
	Logger   *slog.Logger
	Addr     string
	APIKey   string
	PushPath string
	// RateLimit is the number of pushes allowed per client per minute. Zero
	// disables limiting.
	RateLimit int
}

// Server serves the aggregator API.
type Server struct {
	db       *DB
	validate *validator.Validate
	log      *slog.Logger
	srv      *http.Server
	opts     Options
}

// New returns a server backed by db.
func New(db *DB, opts Options) *Server {
	if opts.PushPath == "" {
		opts.PushPath = PushPath
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      opts.Logger,
		opts:     opts,
	}

	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

type errorHandler func(w http.ResponseWriter, r *http.Request) error

// statusError carries a status code through a handler's error return.
type statusError struct {
	err  error
	code int
}

func (e *statusError) Error() string {
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}

func withStatus(code int, err error) error {
	return &statusError{err: err, code: code}
}

func (h errorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h(w, r)
	if err == nil {
		return
	}

	code := http.StatusInternalServerError

	var sErr *statusError

	switch {
	case errors.As(err, &sErr):
		code = sErr.code
	case errors.Is(err, errUserNotFound):
		code = http.StatusNotFound
	}

	writeJSON(w, code, failureResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(v)
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)

		if s.opts.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.opts.RateLimit, time.Minute))
		}

		r.Method(http.MethodPost, s.opts.PushPath, errorHandler(s.push))
	})

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/users/{username}/history", errorHandler(s.history))
		r.Method(http.MethodGet, "/users/{username}/languages", errorHandler(s.languages))
		r.Method(http.MethodGet, "/leaderboard", errorHandler(s.leaderboard))
	})

	return r
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.APIKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, failureResponse{Error: "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) push(w http.ResponseWriter, r *http.Request) error {
	var req pushRequest

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil {
		return withStatus(http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
	}

	if err := s.validate.Struct(&req); err != nil {
		return withStatus(http.StatusBadRequest, err)
	}

	resp, err := s.db.Push(r.Context(), req.payload())
	if err != nil {
		return err
	}

	s.log.Info(
		"processed sync",
		slog.String("username", resp.Username),
		slog.Int("days", resp.Processed.DailyTotals),
		slog.Int("languages", resp.Processed.LanguageTotals),
	)

	writeJSON(w, http.StatusOK, resp)

	return nil
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) error {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}

	out, err := s.db.History(r.Context(), chi.URLParam(r, "username"), page)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, out)

	return nil
}

// dateRange reads start and end from the query, defaulting to the last
// seven days.
func dateRange(r *http.Request) (start, end string, err error) {
	from, to := timeutil.PeriodRange(timeutil.Period7Days, time.Now())

	start = r.URL.Query().Get("start")
	if start == "" {
		start = timeutil.DayKey(from)
	}

	end = r.URL.Query().Get("end")
	if end == "" {
		end = timeutil.DayKey(to)
	}

	for _, day := range []string{start, end} {
		if _, err := timeutil.ParseDay(day); err != nil {
			return "", "", withStatus(http.StatusBadRequest, err)
		}
	}

	return start, end, nil
}

func (s *Server) languages(w http.ResponseWriter, r *http.Request) error {
	start, end, err := dateRange(r)
	if err != nil {
		return err
	}

	out, err := s.db.Languages(r.Context(), chi.URLParam(r, "username"), start, end)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, out)

	return nil
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) error {
	start, end, err := dateRange(r)
	if err != nil {
		return err
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	limit = min(limit, maxLeaderboardLimit)

	out, err := s.db.Leaderboard(r.Context(), start, end, limit)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, out)

	return nil
}

// ListenAndServe serves the API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	s.log.InfoContext(
		ctx,
		"development aggregator listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("push_path", s.opts.PushPath),
	)

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
