package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/p-arndt/kastell/internal/sandbox"
)

type createRequest struct {
	Name     string   `json:"name"`
	Image    string   `json:"image"`
	Type     string   `json:"type"`
	Profiles []string `json:"profiles,omitempty"`
}

type sandboxResponse struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	State string `json:"state"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}

	sb, err := s.manager.Create(r.Context(), sandbox.CreateOpts{
		Name:     req.Name,
		Image:    req.Image,
		Type:     req.Type,
		Profiles: req.Profiles,
	})
	if err != nil {
		writeAPIError(w, err)
		return
	}

	s.logger.Info("sandbox created", "name", sb.Name(), "request_id", requestID(r))
	writeJSON(w, http.StatusCreated, sandboxResponse{
		Name:  sb.Name(),
		Type:  sb.Type(),
		State: string(sandbox.StateRunning),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter := sandbox.Filter{
		Type:       r.URL.Query().Get("type"),
		NamePrefix: r.URL.Query().Get("prefix"),
	}
	infos, err := s.manager.List(r.Context(), filter)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if infos == nil {
		infos = []sandbox.Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	info, err := s.manager.Describe(r.Context(), r.PathValue("name"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	opts := sandbox.DestroyOpts{
		KeepSnapshots: r.URL.Query().Get("keep_snapshots") == "true",
		Force:         r.URL.Query().Get("force") == "true",
	}
	if err := s.manager.Destroy(r.Context(), r.PathValue("name"), opts); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Start(r.Context(), r.PathValue("name")); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	if err := s.manager.Stop(r.Context(), r.PathValue("name"), force); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Restart(r.Context(), r.PathValue("name")); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type execRequest struct {
	Command   string            `json:"command"`
	Dir       string            `json:"dir,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	User      string            `json:"user,omitempty"`
	TimeoutMs int               `json:"timeout_ms,omitempty"`
	Stdin     string            `json:"stdin,omitempty"`
}

type execResponse struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	var req execRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeValidationError(w, "command is required")
		return
	}

	res, err := s.manager.RunCommand(r.Context(), r.PathValue("name"), req.Command, sandbox.CommandOpts{
		Dir:     req.Dir,
		Env:     req.Env,
		User:    req.User,
		Timeout: time.Duration(req.TimeoutMs) * time.Millisecond,
		Stdin:   req.Stdin,
	})
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, execResponse{
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		ExitCode:   res.ExitCode,
		DurationMs: res.Duration.Milliseconds(),
	})
}

type codeRequest struct {
	Source    string            `json:"source"`
	Language  string            `json:"language"`
	TimeoutMs int               `json:"timeout_ms,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

type codeResponse struct {
	Output     string `json:"output"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Source == "" || req.Language == "" {
		writeValidationError(w, "source and language are required")
		return
	}

	res, err := s.manager.RunCode(r.Context(), r.PathValue("name"), req.Source, sandbox.CodeOpts{
		Language: req.Language,
		Timeout:  time.Duration(req.TimeoutMs) * time.Millisecond,
		Env:      req.Env,
	})
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, codeResponse{
		Output:     res.Output,
		ExitCode:   res.ExitCode,
		DurationMs: res.Duration.Milliseconds(),
	})
}

type mountRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Mode   string `json:"mode"`
	Shift  bool   `json:"shift,omitempty"`
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request) {
	var req mountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Source == "" || req.Target == "" {
		writeValidationError(w, "source and target are required")
		return
	}

	mnt, err := s.manager.Mount(r.Context(), r.PathValue("name"), sandbox.MountOpts{
		Source: req.Source,
		Target: req.Target,
		Mode:   sandbox.MountMode(req.Mode),
		Shift:  req.Shift,
	})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mnt)
}

func (s *Server) handleUnmount(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeValidationError(w, "target query parameter is required")
		return
	}
	if err := s.manager.Unmount(r.Context(), r.PathValue("name"), target); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMounts(w http.ResponseWriter, r *http.Request) {
	mounts, err := s.manager.ListMounts(r.Context(), r.PathValue("name"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if mounts == nil {
		mounts = []sandbox.Mount{}
	}
	writeJSON(w, http.StatusOK, mounts)
}

type snapshotRequest struct {
	Name     string `json:"name"`
	Stateful bool   `json:"stateful,omitempty"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeValidationError(w, "name is required")
		return
	}
	if err := s.manager.Snapshot(r.Context(), r.PathValue("name"), req.Name, req.Stateful); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.RestoreSnapshot(r.Context(), r.PathValue("name"), r.PathValue("snap")); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.DeleteSnapshot(r.Context(), r.PathValue("name"), r.PathValue("snap")); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.manager.ListSnapshots(r.Context(), r.PathValue("name"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if snaps == nil {
		snaps = []sandbox.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

type writeFileRequest struct {
	Path          string `json:"path"`
	Text          string `json:"text,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
}

func (s *Server) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	var req writeFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Path == "" {
		writeValidationError(w, "path is required")
		return
	}

	data := []byte(req.Text)
	if req.ContentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			writeValidationError(w, "invalid base64 content")
			return
		}
		data = decoded
	}

	if err := s.manager.WriteFile(r.Context(), r.PathValue("name"), req.Path, data); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeValidationError(w, "path query parameter is required")
		return
	}

	data, err := s.manager.ReadFile(r.Context(), r.PathValue("name"), path)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"path":           path,
		"content_base64": base64.StdEncoding.EncodeToString(data),
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
