package appserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"

	"golang.org/x/net/websocket"

	"github.com/CZERTAINLY/Bridge/internal/model"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

const (
	methodPing = "ping"
	methodExec = "command/exec"
)

var errForeignOrigin = errors.New("origin is not a loopback host")

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// checkOrigin refuses browser pages served from anything but loopback. Native
// clients send no Origin and are let through.
func checkOrigin(cfg *websocket.Config, r *http.Request) error {
	origin, err := websocket.Origin(cfg, r)
	if err != nil {
		return err
	}
	if origin == nil {
		return nil
	}
	host := origin.Hostname()
	if host == "localhost" {
		return nil
	}
	if ip, err := netip.ParseAddr(host); err == nil && ip.IsLoopback() {
		return nil
	}
	slog.WarnContext(r.Context(), "websocket origin refused", "origin", origin.String())
	return fmt.Errorf("%s: %w", origin, errForeignOrigin)
}

func (s *Server) serveRPC(ws *websocket.Conn) {
	ctx := ws.Request().Context()
	stop := context.AfterFunc(ctx, func() {
		_ = ws.Close()
	})
	defer stop()
	defer ws.Close()

	for {
		var frame []byte
		if err := websocket.Message.Receive(ws, &frame); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				slog.DebugContext(ctx, "rpc connection closed", "error", err)
			}
			return
		}
		resp, ok := s.dispatch(ctx, frame)
		if !ok {
			continue
		}
		if err := websocket.JSON.Send(ws, resp); err != nil {
			slog.DebugContext(ctx, "rpc send", "error", err)
			return
		}
	}
}

// dispatch handles one frame. It reports false for notifications, which get
// no response.
func (s *Server) dispatch(ctx context.Context, frame []byte) (rpcResponse, bool) {
	if trimmed := bytes.TrimLeft(frame, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '[' {
		return failure(nil, codeInvalidRequest, "batch requests are not supported"), true
	}
	var req rpcRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return failure(nil, codeParseError, "parse error"), true
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return failure(req.ID, codeInvalidRequest, "invalid request"), true
	}
	if req.ID == nil {
		return rpcResponse{}, false
	}

	switch req.Method {
	case methodPing:
		return success(req.ID, "pong"), true
	case methodExec:
		var params model.ExecRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return failure(req.ID, codeInvalidParams, "invalid params: "+err.Error()), true
		}
		reply, err := s.run(ctx, params)
		if err != nil {
			return failure(req.ID, codeInvalidParams, err.Error()), true
		}
		return success(req.ID, reply), true
	default:
		return failure(req.ID, codeMethodNotFound, "method not found: "+req.Method), true
	}
}

func success(id json.RawMessage, result any) rpcResponse {
	return rpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func failure(id json.RawMessage, code int, msg string) rpcResponse {
	if id == nil {
		id = json.RawMessage("null")
	}
	return rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}
