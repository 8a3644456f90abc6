// Package api provides the REST API for pre-departure advisories.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"preflight/internal/aero"
	"preflight/internal/geo"
	"preflight/internal/service"
	"preflight/internal/storage"
	"preflight/internal/verdict"
	"preflight/internal/wx"
)

const maxBodyBytes = 1 << 20

// Server exposes the advisory service over HTTP.
type Server struct {
	svc         *service.Service
	addr        string
	authEnabled bool
	apiKeys     map[string]bool
	logger      *slog.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Addr        string
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.
}

// NewServer creates a new API server.
func NewServer(svc *service.Service, cfg Config, logger *slog.Logger) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8081"
	}

	return &Server{
		svc:         svc,
		addr:        cfg.Addr,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
		logger:      logger,
	}
}

// Handler returns the full handler tree with middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Mount("/api/v1", s.Router())
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("api starting", slog.String("addr", s.addr), slog.Bool("auth", s.authEnabled))

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the configured chi router for embedding in other servers.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Health check (no auth required).
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.authEnabled {
			r.Use(s.authMiddleware)
		}
		r.Post("/advisory", s.handleAdvisory)
		r.Post("/evaluate", s.handleEvaluate)
		r.Get("/decode", s.handleDecode)
		r.Get("/distance", s.handleDistance)
		r.Get("/weather/{icao}", s.handleWeather)
		r.Get("/policies", s.handlePolicies)
	})

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		lvl := slog.LevelInfo
		if ww.Status() >= 500 {
			lvl = slog.LevelWarn
		}
		s.logger.Log(r.Context(), lvl, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("remote", r.RemoteAddr),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	var req service.Request
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := s.svc.Advise(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, "advisory timed out")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// EvaluateRequest carries caller-supplied aerodrome records. Missing fields
// of an aerodrome are treated as unavailable.
type EvaluateRequest struct {
	Origin      aero.Aerodrome `json:"origin"`
	Destination aero.Aerodrome `json:"destination"`
	service.Options
}

// UnmarshalJSON applies service.DefaultOptions before decoding.
func (e *EvaluateRequest) UnmarshalJSON(b []byte) error {
	type plain EvaluateRequest
	v := plain{Options: service.DefaultOptions()}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*e = EvaluateRequest(v)
	return nil
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := s.svc.Evaluate(req.Origin, req.Destination, req.Options)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// DecodeResponse is returned by /decode. Trace is only filled on request.
type DecodeResponse struct {
	Summary wx.Summary `json:"summary"`
	Trace   *wx.Trace  `json:"trace,omitempty"`
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := wx.ParseKind(q.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg := q.Get("msg")
	if strings.TrimSpace(msg) == "" {
		writeError(w, http.StatusBadRequest, "msg is required")
		return
	}

	dec := s.svc.Engine.Decoder
	if dec == nil {
		dec = wx.Default()
	}
	resp := DecodeResponse{Summary: dec.Decode(kind, msg)}
	if trace, _ := strconv.ParseBool(q.Get("trace")); trace {
		tr := dec.Trace(kind, msg)
		resp.Trace = &tr
	}

	writeJSON(w, http.StatusOK, resp)
}

// DistanceResponse is returned by /distance.
type DistanceResponse struct {
	From       aero.Coordinate `json:"from"`
	To         aero.Coordinate `json:"to"`
	DistanceNM float64         `json:"distance_nm"`
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	from, err := geo.ParsePair(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	to, err := geo.ParsePair(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, DistanceResponse{From: from, To: to, DistanceNM: geo.DistanceNM(from, to)})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	icao := aero.NormaliseICAO(chi.URLParam(r, "icao"))
	if !aero.IsICAO(icao) {
		writeError(w, http.StatusBadRequest, "invalid ICAO code")
		return
	}

	q := r.URL.Query()
	wq := storage.WeatherQuery{ICAO: icao}
	if k := q.Get("kind"); k != "" {
		kind, err := wx.ParseKind(k)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		wq.Kind = string(kind)
	}
	wq.HazardOnly, _ = strconv.ParseBool(q.Get("hazard"))
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		wq.Limit = n
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid since (use RFC3339)")
			return
		}
		wq.Since = t
	}

	msgs, err := s.svc.History(r.Context(), wq)
	if errors.Is(err, service.ErrNoArchive) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []storage.WeatherMessage{}
	}

	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handlePolicies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"policies": verdict.PolicyNames(),
		"active":   s.svc.Engine.Policy.Name,
	})
}

// Helper functions.

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
