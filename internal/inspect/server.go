package inspect

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/conduit-lang/powerups/internal/scene"
	"github.com/conduit-lang/powerups/runtime/lifecycle"
)

var ErrOutsideSceneDir = errors.New("path is outside the scene directory")

// Options configures a Server.
type Options struct {
	Dir     string                 // Scene directory served
	Through lifecycle.Notification // Default last notification delivered by checks
	Auth    *Auth                  // Guards every route but /healthz when set
	Logger  *zap.Logger
}

// Server exposes scene checks and schemas over HTTP and pushes fresh reports
// to websocket clients when scene files change.
//
//	GET  /healthz
//	POST /token                  password login, when a hash is configured
//	GET  /scenes                 scene files, relative to the scene directory
//	GET  /scenes/{path}?through= check report
//	GET  /schema/{path}          subject wiring schemas
//	GET  /ws                     change notifications
type Server struct {
	router  chi.Router
	hub     *Hub
	dir     string
	through lifecycle.Notification
	logger  *zap.Logger
}

// NewServer creates a Server over opts.Dir.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if !opts.Through.Valid() {
		opts.Through = lifecycle.SceneInstantiated
	}

	s := &Server{
		hub:     NewHub(opts.Logger),
		dir:     opts.Dir,
		through: opts.Through,
		logger:  opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if opts.Auth != nil && opts.Auth.AcceptsPasswords() {
		r.Post("/token", opts.Auth.HandleLogin)
	}

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth.Middleware)
		}
		r.Get("/scenes", s.listScenes)
		r.Get("/scenes/*", s.checkScene)
		r.Get("/schema/*", s.describeScene)
		r.Get("/ws", s.hub.HandleWebSocket)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ScenesChanged re-checks the changed scene files and pushes the reports to
// websocket clients. It has the signature of a watch callback.
func (s *Server) ScenesChanged(files []string) error {
	msg := &Message{Type: "checked", Files: files}
	for _, f := range files {
		if IsConfigFile(f) {
			continue
		}
		msg.Reports = append(msg.Reports, Check(f, s.through, s.logger))
	}
	if len(msg.Reports) == 0 {
		return nil
	}
	s.hub.Broadcast(msg)
	return nil
}

// Close disconnects websocket clients.
func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) listScenes(w http.ResponseWriter, r *http.Request) {
	files, err := SceneFiles(s.dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(s.dir, f)
		if err != nil {
			rel = f
		}
		names = append(names, filepath.ToSlash(rel))
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) checkScene(w http.ResponseWriter, r *http.Request) {
	path, ok := s.scenePath(w, r)
	if !ok {
		return
	}

	through := s.through
	if q := r.URL.Query().Get("through"); q != "" {
		n, err := lifecycle.ParseNotification(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		through = n
	}

	report := Check(path, through, s.logger)
	report.Scene = chi.URLParam(r, "*")
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) describeScene(w http.ResponseWriter, r *http.Request) {
	path, ok := s.scenePath(w, r)
	if !ok {
		return
	}

	sc, err := scene.Load(path)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, Describe(sc))
}

// scenePath resolves the wildcard of the request inside the scene directory
// and writes an error response when it cannot.
func (s *Server) scenePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	rel := chi.URLParam(r, "*")
	if rel == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("scene path is required"))
		return "", false
	}

	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		writeError(w, http.StatusBadRequest, ErrOutsideSceneDir)
		return "", false
	}

	path := filepath.Join(s.dir, clean)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, fmt.Errorf("scene %s not found", rel))
		return "", false
	}
	return path, true
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
