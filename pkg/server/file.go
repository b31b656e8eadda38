package server

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	f, err := s.files.OpenContent(uuid)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)

			return
		}

		s.logger.Error().Err(err).Str("uuid", uuid).Msg("error opening content file")
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		s.logger.Error().Err(err).Str("uuid", uuid).Msg("error stating content file")
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, uuid, fi.ModTime(), f)
}
