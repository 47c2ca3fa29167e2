package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/net/http/httpguts"

	"seedhttpd/api/internal/gitrepo"
	"seedhttpd/api/internal/logger"
)

// MaxBlobSize is the largest blob served by the raw routes, in bytes.
const MaxBlobSize = 4 * 1024 * 1024

// RawServer serves file content as is. It is unauthenticated and sets no
// cache headers of its own.
type RawServer struct {
	service *Service
}

func NewRawServer(service *Service) *RawServer {
	return &RawServer{service: service}
}

func (s *RawServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors(corsOptions{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))
	r.Get("/{rid}/blobs/{oid}", s.handleBlob)
	r.Get("/{rid}/head/*", s.handleHead)
	r.Get("/{rid}/{sha}/*", s.handleFile)
	return r
}

func (s *RawServer) handleFile(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	blob, err := s.service.RawBlobAt(r.Context(), chi.URLParam(r, "rid"), chi.URLParam(r, "sha"), path)
	s.serve(w, r, blob, err, func() string { return mimeForPath(path) })
}

func (s *RawServer) handleHead(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	blob, err := s.service.RawBlobAtHead(r.Context(), chi.URLParam(r, "rid"), path)
	s.serve(w, r, blob, err, func() string { return mimeForPath(path) })
}

func (s *RawServer) handleBlob(w http.ResponseWriter, r *http.Request) {
	blob, err := s.service.RawBlob(r.Context(), chi.URLParam(r, "rid"), chi.URLParam(r, "oid"))
	s.serve(w, r, blob, err, func() string {
		if mime := r.URL.Query().Get("mime"); mime != "" {
			return mime
		}
		return mimeOctetStream
	})
}

// serve runs the checks shared by all raw routes in order: resolution, size,
// content type. Content is only read once the blob is known to fit.
func (s *RawServer) serve(w http.ResponseWriter, r *http.Request, blob *object.Blob, err error, mime func() string) {
	if err != nil {
		status, message := mapError(err)
		if status >= http.StatusInternalServerError {
			logger.C(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("raw request failed")
		}
		writeError(w, status, message)
		return
	}
	if blob.Size > MaxBlobSize {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}
	contentType := mime()
	if !httpguts.ValidHeaderFieldValue(contentType) {
		writeError(w, http.StatusBadRequest, "Invalid mime type")
		return
	}
	content, _, err := gitrepo.ReadBlob(blob)
	if err != nil {
		logger.C(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("raw request failed")
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
