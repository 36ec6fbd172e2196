package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/apptdesk/internal/instrumentation"
	"github.com/teemow/apptdesk/internal/logging"
	"github.com/teemow/apptdesk/internal/tools/batch"
)

// Identity reported by the server info envelopes.
const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "Google Calendar MCP Server"
	ServerVersion   = "1.0.0"
)

// JSON-RPC error codes.
const (
	codeInvalidRequest = -32600
	codeInternalError  = -32603
)

// backendUnavailable is reported per call when no calendar backend is configured.
const backendUnavailable = "Google Calendar service not available"

// maxBodyBytes caps the size of JSON request bodies.
const maxBodyBytes = 1 << 20

type rpcRequest struct {
	JSONRPC   string           `json:"jsonrpc"`
	ID        any              `json:"id"`
	Method    string           `json:"method"`
	Params    json.RawMessage  `json:"params,omitempty"`
	ToolCalls []batch.ToolCall `json:"tool_calls,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
	Tools           []mcp.Tool     `json:"tools,omitempty"`
}

type toolsResult struct {
	Tools []mcp.Tool `json:"tools"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func newInitializeResult(tools []mcp.Tool) initializeResult {
	return initializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo:      serverInfo{Name: ServerName, Version: ServerVersion},
		Tools:           tools,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, id, result any) {
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func writeRPCError(w http.ResponseWriter, id any, code int, message string) {
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}

// readRequest decodes a JSON body. An empty body yields ok with empty == true.
func readRequest(r *http.Request) (req rpcRequest, empty bool, err error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return rpcRequest{}, false, fmt.Errorf("failed to read request body: %w", err)
	}

	var raw map[string]json.RawMessage
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return rpcRequest{}, false, fmt.Errorf("request body must be a JSON object: %w", err)
		}
	}
	if len(raw) == 0 {
		return rpcRequest{ID: 1}, true, nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return rpcRequest{}, false, fmt.Errorf("invalid request: %w", err)
	}
	if req.ID == nil {
		req.ID = 1
	}
	return req, false, nil
}

func (s *HTTPServer) handleServerInfo(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, 1, newInitializeResult(nil))
}

// handleRootRPC answers the JSON-RPC requests some clients send to "/".
func (s *HTTPServer) handleRootRPC(w http.ResponseWriter, r *http.Request) {
	req, empty, err := readRequest(r)
	if err != nil {
		writeRPCError(w, 1, codeInvalidRequest, err.Error())
		return
	}
	if empty {
		writeResult(w, 1, toolsResult{Tools: s.catalog.Tools()})
		return
	}

	switch req.Method {
	case "initialize", "init":
		writeResult(w, req.ID, newInitializeResult(nil))
	case "tools/list", "list_tools":
		writeResult(w, req.ID, toolsResult{Tools: s.catalog.Tools()})
	case "tools/call":
		s.handleToolsCall(w, r, req)
	default:
		writeResult(w, req.ID, newInitializeResult(s.catalog.Tools()))
	}
}

func (s *HTTPServer) handleToolsCall(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	var params toolsCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeRPCError(w, req.ID, codeInvalidRequest, fmt.Sprintf("invalid params: %v", err))
			return
		}
	}
	if !s.catalog.Has(params.Name) {
		writeRPCError(w, req.ID, codeInternalError, fmt.Sprintf("Unknown tool: %s", params.Name))
		return
	}

	args, err := batch.ParseArguments(params.Arguments)
	if err != nil {
		writeRPCError(w, req.ID, codeInvalidRequest, err.Error())
		return
	}

	ctx := instrumentation.WithCaller(r.Context(), instrumentation.CallerJSONRPC)
	result, err := s.catalog.Call(ctx, params.Name, args)
	if err != nil {
		writeRPCError(w, req.ID, codeInternalError, err.Error())
		return
	}

	writeResult(w, req.ID, callResult{
		Content: []textContent{{Type: "text", Text: ResultText(result)}},
		IsError: result.IsError,
	})
}

// handleToolsRPC accepts either a JSON-RPC request whose method is a tool
// name or a webhook tool_calls batch.
func (s *HTTPServer) handleToolsRPC(w http.ResponseWriter, r *http.Request) {
	req, empty, err := readRequest(r)
	if err != nil {
		writeRPCError(w, 1, codeInternalError, err.Error())
		return
	}

	switch {
	case !empty && req.JSONRPC != "" && req.Method != "":
		s.callToolMethod(w, r, req)
	case req.ToolCalls != nil:
		s.writeToolCalls(w, r, req.ToolCalls, instrumentation.CallerJSONRPC)
	default:
		writeRPCError(w, req.ID, codeInternalError, "Invalid request format")
	}
}

func (s *HTTPServer) callToolMethod(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	if !s.catalog.Has(req.Method) {
		writeRPCError(w, req.ID, codeInternalError, fmt.Sprintf("Unknown tool: %s", req.Method))
		return
	}

	args, err := batch.ParseArguments(req.Params)
	if err != nil {
		writeRPCError(w, req.ID, codeInternalError, err.Error())
		return
	}

	ctx := instrumentation.WithCaller(r.Context(), instrumentation.CallerJSONRPC)
	result, err := s.catalog.Call(ctx, req.Method, args)
	if err != nil {
		writeRPCError(w, req.ID, codeInternalError, err.Error())
		return
	}
	if result.IsError {
		writeRPCError(w, req.ID, codeInternalError, ResultText(result))
		return
	}

	writeResult(w, req.ID, callResult{
		Content: []textContent{{Type: "text", Text: ResultText(result)}},
	})
}

// executor adapts the catalog to batch processing. Unknown tools answer with
// a result text and tool failures become per-call errors.
func (s *HTTPServer) executor(caller string) batch.Executor {
	metrics := s.sc.Metrics()
	return func(ctx context.Context, name string, args map[string]any) (string, error) {
		if !s.catalog.Has(name) {
			metrics.RecordWebhookToolCall(ctx, name, instrumentation.StatusUnknown)
			return fmt.Sprintf("Unknown tool: %s", name), nil
		}
		if !s.sc.BackendConfigured() {
			metrics.RecordWebhookToolCall(ctx, name, instrumentation.StatusError)
			return "", errors.New(backendUnavailable)
		}

		result, err := s.catalog.Call(instrumentation.WithCaller(ctx, caller), name, args)
		if err == nil && result.IsError {
			err = errors.New(ResultText(result))
		}
		if err != nil {
			metrics.RecordWebhookToolCall(ctx, name, instrumentation.StatusError)
			return "", err
		}
		metrics.RecordWebhookToolCall(ctx, name, instrumentation.StatusSuccess)
		return ResultText(result), nil
	}
}

func (s *HTTPServer) writeToolCalls(w http.ResponseWriter, r *http.Request, calls []batch.ToolCall, caller string) {
	start := time.Now()
	results := batch.Process(r.Context(), calls, s.executor(caller))

	s.logger.Info("processed tool calls",
		logging.Caller(caller),
		slog.Int("calls", len(calls)),
		slog.Int("failed", batch.Failed(results)),
		slog.Duration(logging.KeyDuration, time.Since(start)),
	)

	writeJSON(w, http.StatusOK, batch.Response{Results: results})
}
