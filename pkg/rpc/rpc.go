// Package rpc implements the method-dispatch RPC transport shared by the
// cache and RLS services: one HTTP endpoint per service, methods invoked by
// name, arguments and results carrying JSON-compatible scalars, lists, and
// string-keyed maps (null permitted). This replaces the original dynamic
// by-name dispatch with an explicit method table, decoding each call's
// arguments into the handler's concrete Go types.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ErrUnknownMethod is returned when a call names a method not present in
// the server's method table.
var ErrUnknownMethod = errors.New("rpc: unknown method")

// Handler is a single RPC method. It receives the request's raw JSON
// parameters and returns a JSON-marshalable result or an error.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Server dispatches incoming HTTP requests to a named method table.
type Server struct {
	methods map[string]Handler
}

// NewServer returns an empty Server. Register methods with Handle before
// mounting Routes.
func NewServer() *Server {
	return &Server{methods: make(map[string]Handler)}
}

// Handle registers a method by name.
func (s *Server) Handle(name string, h Handler) {
	s.methods[name] = h
}

// Routes mounts POST /{method} for every registered handler under r.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{method}", s.serveMethod)

	return r
}

type envelope struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) serveMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	method := chi.URLParam(r, "method")

	h, ok := s.methods[method]
	if !ok {
		writeError(ctx, w, http.StatusNotFound, fmt.Errorf("%w: %s", ErrUnknownMethod, method))

		return
	}

	var params json.RawMessage

	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("rpc: error decoding params: %w", err))

			return
		}
	}

	result, err := h(ctx, params)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(envelope{Result: result}); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("method", method).Msg("error encoding rpc response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Msg("rpc call failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(envelope{Error: err.Error()})
}
