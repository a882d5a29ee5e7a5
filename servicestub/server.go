// Package servicestub is an in-memory stand-in for a site's signed JSON services
// endpoint. It verifies request signatures, rejects replayed nonces, keeps
// cookie-bound sessions and answers every operation the services client uses,
// including the nested "Access denied" error shape and multipart uploads.
package servicestub

import (
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-services-client/internal/metrics"
	"github.com/jrsteele09/go-services-client/signing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultServicePath = "/services/json"
	DefaultUploadPath  = "/dandy/fileupload/"
	DefaultMaxSkew     = 5 * time.Minute

	// SessionCookie carries the session id between calls.
	SessionCookie = "SESSservicestub"
)

type Server struct {
	mux         *http.ServeMux
	routes      []string
	store       *Store
	signer      signing.Signer
	servicePath string
	uploadPath  string
	maxSkew     time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Registry
	nowTime     func() time.Time // injectable for testing

	lock     sync.Mutex
	sessions map[string]*session
	nonces   map[string]time.Time
	handlers map[string]opHandler
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records answered calls and serves the registry at /metrics.
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Server) {
		s.metrics = r
	}
}

// WithNowTime sets the clock used for timestamp checks (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithMaxSkew bounds how far a request timestamp may be from the server clock.
// Zero disables the check.
func WithMaxSkew(d time.Duration) Option {
	return func(s *Server) {
		s.maxSkew = d
	}
}

func WithServicePath(path string) Option {
	return func(s *Server) {
		s.servicePath = path
	}
}

func WithUploadPath(path string) Option {
	return func(s *Server) {
		s.uploadPath = path
	}
}

// New creates a stub serving store. signer holds the shared key and domain the
// clients must sign with.
func New(store *Store, signer signing.Signer, options ...Option) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		store:       store,
		signer:      signer,
		servicePath: DefaultServicePath,
		uploadPath:  DefaultUploadPath,
		maxSkew:     DefaultMaxSkew,
		logger:      log.Logger,
		nowTime:     time.Now,
		sessions:    make(map[string]*session),
		nonces:      make(map[string]time.Time),
	}
	for _, opt := range options {
		opt(s)
	}
	s.handlers = s.operationHandlers()
	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("POST "+s.servicePath, ChainMiddleware(s.ServicesHandler(), s.StdMiddleware()...))
	s.RegisterRouteHandler("POST "+s.uploadPath+"{token}", ChainMiddleware(s.UploadHandler(), s.StdMiddleware()...))
	if s.metrics != nil {
		s.RegisterRouteHandler("GET /metrics", s.metrics.Handler())
	}
	s.RegisterRouteHandler("GET /{filepath...}", ChainMiddleware(s.FileHandler(), s.StdMiddleware()...))
}

func (s *Server) logRoutes() {
	for _, route := range s.routes {
		s.logger.Debug().Str("route", route).Msg("registered")
	}
}
