package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/p-arndt/kastell/internal/config"
)

type Server struct {
	cfg     *config.Config
	manager SandboxService
	logger  *slog.Logger
	mux     *http.ServeMux
}

func NewServer(cfg *config.Config, mgr SandboxService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		manager: mgr,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.authMiddleware(s.requestIDMiddleware(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/sandboxes", s.handleCreate)
	s.mux.HandleFunc("GET /v1/sandboxes", s.handleList)
	s.mux.HandleFunc("GET /v1/sandboxes/{name}", s.handleGet)
	s.mux.HandleFunc("DELETE /v1/sandboxes/{name}", s.handleDestroy)

	s.mux.HandleFunc("POST /v1/sandboxes/{name}/start", s.handleStart)
	s.mux.HandleFunc("POST /v1/sandboxes/{name}/stop", s.handleStop)
	s.mux.HandleFunc("POST /v1/sandboxes/{name}/restart", s.handleRestart)

	s.mux.HandleFunc("POST /v1/sandboxes/{name}/exec", s.handleExec)
	s.mux.HandleFunc("POST /v1/sandboxes/{name}/code", s.handleCode)

	s.mux.HandleFunc("GET /v1/sandboxes/{name}/mounts", s.handleListMounts)
	s.mux.HandleFunc("POST /v1/sandboxes/{name}/mounts", s.handleMount)
	s.mux.HandleFunc("DELETE /v1/sandboxes/{name}/mounts", s.handleUnmount)

	s.mux.HandleFunc("GET /v1/sandboxes/{name}/snapshots", s.handleListSnapshots)
	s.mux.HandleFunc("POST /v1/sandboxes/{name}/snapshots", s.handleSnapshot)
	s.mux.HandleFunc("POST /v1/sandboxes/{name}/snapshots/{snap}/restore", s.handleRestoreSnapshot)
	s.mux.HandleFunc("DELETE /v1/sandboxes/{name}/snapshots/{snap}", s.handleDeleteSnapshot)

	s.mux.HandleFunc("POST /v1/sandboxes/{name}/fs/write", s.handleWriteFile)
	s.mux.HandleFunc("GET /v1/sandboxes/{name}/fs/read", s.handleReadFile)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
