package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timetracker/internal/auth"
	"timetracker/internal/log"
	"timetracker/internal/middleware/ratelimit"
	"timetracker/internal/middleware/security"
	"timetracker/internal/middleware/trace"
	"timetracker/internal/store"
	appweb "timetracker/web"
)

const defaultStoreTimeout = 7 * time.Second

// Options configures NewServer. Zero values fall back to sensible defaults.
type Options struct {
	Logger *log.Logger
	Auth   auth.Config
	// LoginURL is the identity provider's sign-in page.
	LoginURL     string
	StoreTimeout time.Duration
	RateLimit    ratelimit.Config
}

type Server struct {
	http.Server
	templates    *template.Template
	store        store.ActivityStore
	logger       *log.Logger
	authCfg      auth.Config
	loginURL     string
	storeTimeout time.Duration

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server.
func NewServer(addr string, st store.ActivityStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDiscard()
	}
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}

	s := &Server{
		store:        st,
		logger:       logger.WithComponent(log.ComponentHTTP),
		authCfg:      opts.Auth,
		loginURL:     opts.LoginURL,
		storeTimeout: timeout,
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
		detector:     security.NewDetector(logger),
		started:      time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /signin", s.handleSignin)
	mux.HandleFunc("POST /session", s.handleSession)
	mux.HandleFunc("POST /signout", s.handleSignout)

	// HTMX partials and form posts
	mux.HandleFunc("GET /ui/day", s.handleDayPartial)
	mux.HandleFunc("POST /activities", s.handleCreateActivity)
	mux.HandleFunc("POST /activities/update", s.handleUpdateActivity)
	mux.HandleFunc("POST /activities/delete", s.handleDeleteActivity)

	// JSON API
	mux.HandleFunc("GET /api/day", s.handleAPIDay)
	mux.HandleFunc("POST /api/activities", s.handleAPICreate)
	mux.HandleFunc("PUT /api/activities/{id}", s.handleAPIUpdate)
	mux.HandleFunc("DELETE /api/activities/{id}", s.handleAPIDelete)

	authMW := auth.NewMiddleware(opts.Auth, skipAuth)
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var h http.Handler = mux
	h = limit(h)
	h = authMW.Wrap(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// skipAuth bypasses token parsing for probes, metrics and static files.
func skipAuth(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/static/")
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	if isHTMX(r) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").
			Header("HX-Retarget", "#messages").
			Write(w)
		return
	}
	writeJSON(w, http.StatusTooManyRequests, map[string]apiError{
		"error": {Kind: "rate_limited", Message: "Too many requests"},
	})
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// storeContext bounds a store round trip so a slow backend cannot hang a page.
func (s *Server) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}
