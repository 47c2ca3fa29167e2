package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"seedhttpd/api/internal/logger"
)

const (
	apiVersion = "v1"
	version    = "0.1.0"

	cacheImmutable = "public, max-age=604800, immutable"
	cacheNoStore   = "no-store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	slow       time.Duration
}

func NewHTTPServer(service *Service, corsOrigin string, slow time.Duration) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, slow: slow}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, accessLog(s.slow), chimw.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/api/ready", s.handleReady)

	r.Route("/api/"+apiVersion, func(r chi.Router) {
		r.Use(cors(corsOptions{
			AllowedOrigins: []string{s.corsOrigin},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         86400,
		}))
		r.Get("/", s.handleRoot)
		r.Get("/nodes/{nid}", s.handleNode)
		r.Get("/projects", s.handleProjects)
		r.Route("/projects/{rid}", func(r chi.Router) {
			r.Get("/", s.handleProject)
			r.Get("/commits/{sha}", s.handleCommit)
			r.Get("/tree/{sha}", s.handleTree)
			r.Get("/tree/{sha}/*", s.handleTree)
			r.Get("/blob/{sha}/*", s.handleBlob)
			r.Get("/remotes", s.handleRemotes)
			r.Get("/remotes/{nid}", s.handleRemote)
			r.Get("/issues", s.handleIssues)
			r.Get("/issues/{id}", s.handleIssue)
			r.Get("/patches", s.handlePatches)
			r.Get("/patches/{id}", s.handlePatch)
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "Not found")
		})
	})

	r.Mount("/raw", NewRawServer(s.service).Handler())
	return r
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]any{"database": map[string]any{"status": "ok"}}
	status, statusCode := "ready", http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		status, statusCode = "not_ready", http.StatusServiceUnavailable
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
	Type string `json:"type"`
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	var nid *string
	if id := s.service.NodeID(); id != "" {
		nid = &id
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Welcome!",
		"service":    "seed-httpd",
		"version":    version,
		"apiVersion": apiVersion,
		"nid":        nid,
		"path":       s.service.StoragePath(),
		"links": []link{
			{Href: "/projects", Rel: "projects", Type: http.MethodGet},
			{Href: "/nodes/:nid", Rel: "node", Type: http.MethodGet},
		},
	})
}

func (s *HTTPServer) handleNode(w http.ResponseWriter, r *http.Request) {
	alias, err := s.service.Node(r.Context(), chi.URLParam(r, "nid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, map[string]any{"alias": alias})
}

func (s *HTTPServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.Projects(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleProject(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Project(r.Context(), chi.URLParam(r, "rid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, info)
}

func (s *HTTPServer) handleCommit(w http.ResponseWriter, r *http.Request) {
	commit, err := s.service.Commit(r.Context(), chi.URLParam(r, "rid"), chi.URLParam(r, "sha"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheImmutable)
	writeJSON(w, http.StatusOK, commit)
}

func (s *HTTPServer) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.service.Tree(r.Context(), chi.URLParam(r, "rid"), chi.URLParam(r, "sha"), chi.URLParam(r, "*"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheImmutable)
	writeJSON(w, http.StatusOK, tree)
}

func (s *HTTPServer) handleBlob(w http.ResponseWriter, r *http.Request) {
	blob, err := s.service.Blob(r.Context(), chi.URLParam(r, "rid"), chi.URLParam(r, "sha"), chi.URLParam(r, "*"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheImmutable)
	writeJSON(w, http.StatusOK, blob)
}

func (s *HTTPServer) handleRemotes(w http.ResponseWriter, r *http.Request) {
	remotes, err := s.service.Remotes(r.Context(), chi.URLParam(r, "rid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, remotes)
}

func (s *HTTPServer) handleRemote(w http.ResponseWriter, r *http.Request) {
	remote, err := s.service.Remote(r.Context(), chi.URLParam(r, "rid"), chi.URLParam(r, "nid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, remote)
}

func (s *HTTPServer) handleIssues(w http.ResponseWriter, r *http.Request) {
	paging, err := parseListQuery(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := issueQuery{listQuery: paging, State: r.URL.Query().Get("state")}
	if err := validateQuery(q); err != nil {
		s.fail(w, r, err)
		return
	}
	issues, err := s.service.Issues(r.Context(), chi.URLParam(r, "rid"), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, issues)
}

func (s *HTTPServer) handleIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := s.service.Issue(r.Context(), chi.URLParam(r, "rid"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, issue)
}

func (s *HTTPServer) handlePatches(w http.ResponseWriter, r *http.Request) {
	paging, err := parseListQuery(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := patchQuery{listQuery: paging, State: r.URL.Query().Get("state")}
	if err := validateQuery(q); err != nil {
		s.fail(w, r, err)
		return
	}
	patches, err := s.service.Patches(r.Context(), chi.URLParam(r, "rid"), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, patches)
}

func (s *HTTPServer) handlePatch(w http.ResponseWriter, r *http.Request) {
	patch, err := s.service.Patch(r.Context(), chi.URLParam(r, "rid"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, http.StatusOK, patch)
}

// fail writes the mapped error response. Only unexpected failures are logged.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapError(err)
	if status >= http.StatusInternalServerError {
		logger.C(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": message,
		"code":  status,
	})
}
