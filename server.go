package docrest

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/xdbsoft/docrest/api"
	"github.com/xdbsoft/docrest/memory"
	"github.com/xdbsoft/docrest/metrics"
	"github.com/xdbsoft/docrest/mongodb"
	"github.com/xdbsoft/docrest/postgresql"
	"github.com/xdbsoft/docrest/rules"
)

const requestIDHeader = "X-Request-Id"

// Server is the http facade of a document store
type Server struct {
	cfg        Config
	repository api.Repository
	gateway    *Gateway
	bundlers   *Bundlers
	overrides  []override
	logger     zerolog.Logger
	metrics    *metrics.Collector
	handler    http.Handler
}

// Option customizes a Server at construction
type Option func(*Server)

// WithRepository replaces the repository built from the configuration
func WithRepository(r api.Repository) Option {
	return func(s *Server) {
		s.repository = r
	}
}

//WithLogger sets the logger of the server and of every request
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithBundler registers a bundler before the server starts
func WithBundler(collection string, b Bundler) Option {
	return func(s *Server) {
		s.bundlers.Register(collection, b)
	}
}

// WithView binds a view to one method and collection, taking precedence over
// the generic views. Views on methods that are not enabled are ignored.
func WithView(method, collection string, kind Kind, v View) Option {
	return func(s *Server) {
		s.overrides = append(s.overrides, override{
			Method:     strings.ToUpper(method),
			Collection: collection,
			Kind:       kind,
			View:       v,
		})
	}
}

// New instantiates a new docrest server
func New(ctx context.Context, cfg Config, opts ...Option) (*Server, error) {

	s := &Server{
		cfg:      cfg,
		bundlers: &Bundlers{},
		logger:   zerolog.New(os.Stderr).With().Timestamp().Logger(),
		metrics:  metrics.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repository == nil {
		r, err := newRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.repository = r
	}

	if err := s.repository.Init(ctx); err != nil {
		return nil, errors.Wrap(err, "unable to initialize repository")
	}

	s.gateway = &Gateway{
		repository: s.repository,
		allowed:    cfg.allowList(),
		bundlers:   s.bundlers,
		checker:    rules.NewChecker(cfg.rules()),
		maxLimit:   cfg.MaxLimit,
	}

	var h http.Handler = s.routes()
	h = s.recoverer(h)
	h = s.headers(h)
	h = s.instrument(h)
	h = handlers.ProxyHeaders(h)
	if cfg.Compress {
		h = handlers.CompressHandler(h)
	}
	s.handler = h

	s.logger.Info().
		Str("backend", cfg.Backend).
		Int("collections", len(cfg.Collections)).
		Bool("writes", cfg.EnableWrites).
		Msg("docrest server ready")

	return s, nil
}

func newRepository(ctx context.Context, cfg Config) (api.Repository, error) {
	switch cfg.Backend {
	case BackendMongoDB, "":
		return mongodb.New(ctx, cfg.MongoURI, cfg.Database)
	case BackendPostgreSQL:
		return postgresql.New(cfg.DBConnStr)
	case BackendMemory:
		return memory.New(), nil
	}
	return nil, errors.Errorf("unknown backend '%s'", cfg.Backend)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// RegisterBundler binds a bundler to a collection. It applies to the next
// request, even on a running server.
func (s *Server) RegisterBundler(collection string, b Bundler) {
	s.bundlers.Register(collection, b)
}

// Gateway gives direct access to the collection operations
func (s *Server) Gateway() *Gateway {
	return s.gateway
}

//Close releases the repository
func (s *Server) Close(ctx context.Context) error {
	return s.repository.Close(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

//routeKind labels metrics without exploding their cardinality
func (s *Server) routeKind(path string) string {
	if len(s.cfg.MetricsPath) > 0 && path == s.cfg.MetricsPath {
		return "metrics"
	}
	switch len(strings.Split(strings.Trim(path, "/"), "/")) {
	case 1:
		return List.String()
	case 2:
		return Detail.String()
	}
	return "other"
}

// instrument tags the request with an id, a logger and metrics
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		start := time.Now()
		s.metrics.RequestsInFlight.Inc()
		defer s.metrics.RequestsInFlight.Dec()

		id := r.Header.Get(requestIDHeader)
		if len(id) == 0 {
			id = xid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		l := s.logger.With().Str("request_id", id).Logger()
		r = r.WithContext(l.WithContext(r.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		d := time.Since(start)
		s.metrics.Observe(r.Method, s.routeKind(r.URL.Path), rec.status, d)

		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", d).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
