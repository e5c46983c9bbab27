package appserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/net/websocket"

	"github.com/CZERTAINLY/Bridge/internal/model"
)

type execReply struct {
	ID       string `json:"id"`
	ExitCode int    `json:"exit_code"`
	Output   []byte `json:"output"`
}

type errorReply struct {
	Error string `json:"error"`
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ready")
	}).Methods(http.MethodGet)
	r.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "live")
	}).Methods(http.MethodGet)
	r.HandleFunc("/v1/exec", s.handleExec).Methods(http.MethodPost)
	r.Handle("/rpc", websocket.Server{
		Handshake: checkOrigin,
		Handler:   s.serveRPC,
	}).Methods(http.MethodGet)
	return r
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	var req model.ExecRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: "invalid request: " + err.Error()})
		return
	}
	reply, err := s.run(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing reply", "error", err)
	}
}

// run executes req through the executor. Only a missing program is an error,
// a failing command is a normal reply.
func (s *Server) run(ctx context.Context, req model.ExecRequest) (execReply, error) {
	if len(req.Argv) == 0 {
		return execReply{}, model.ErrEmptyCommand
	}
	if req.Dir == "" {
		req.Dir = s.workdir
	}
	id := uuid.NewString()
	slog.DebugContext(ctx, "exec", "id", id, "argv0", req.Argv[0], "cwd", req.Dir)
	res := s.exec.Exec(ctx, req)
	slog.DebugContext(ctx, "exec done", "id", id, "exit_code", res.ExitCode, "bytes", len(res.Output))
	if res.Output == nil {
		res.Output = []byte{}
	}
	return execReply{ID: id, ExitCode: res.ExitCode, Output: res.Output}, nil
}
