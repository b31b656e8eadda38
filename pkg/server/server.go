// Package server is the per-service HTTP front door: the cache's file
// endpoint and RPC mount, or the RLS service's RPC mount alone.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kalbasit/mule/pkg/rpc"
)

const routeFile = "/{uuid:[a-f0-9]+}"

// FileServer is the subset of *cache.Cache the HTTP file endpoint needs.
type FileServer interface {
	OpenContent(uuid string) (ContentFile, error)
}

// ContentFile is a stored object: readable, seekable, and reporting its own
// mod time for the Last-Modified header. It is an alias, not a new type, so
// that any OpenContent method declared in terms of http.File satisfies
// FileServer without an explicit conversion.
type ContentFile = http.File

// Server is the cache daemon's HTTP front door: the GET /<uuid> file
// endpoint plus its mounted RPC method table.
type Server struct {
	files  FileServer
	rpc    *rpc.Server
	logger zerolog.Logger
	router *chi.Mux
}

// New returns a Server serving files from files and RPC methods from rpcSrv.
func New(logger zerolog.Logger, files FileServer, rpcSrv *rpc.Server) *Server {
	s := &Server{files: files, rpc: rpcSrv, logger: logger}
	s.router = s.createRouter()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) createRouter() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)

	if s.files != nil {
		router.Get(routeFile, s.getFile)
	}

	if s.rpc != nil {
		router.Mount("/rpc", s.rpc.Routes())
	}

	return router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		reqID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(startedAt)).
				Str("from", r.RemoteAddr).
				Str("req_id", reqID).
				Int("bytes", ww.BytesWritten()).
				Msg("request")
		}()

		next.ServeHTTP(ww, r)
	}

	return http.HandlerFunc(fn)
}
