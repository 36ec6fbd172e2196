package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/apptdesk/internal/instrumentation"
	"github.com/teemow/apptdesk/internal/tools/batch"
)

type openAIFunction struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Parameters  mcp.ToolInputSchema `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

// handleWebhook runs a voice-agent tool_calls batch. Every call is answered
// individually; one failing call does not affect the others.
func (s *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid JSON body"})
		return
	}

	raw, ok := body["tool_calls"]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "No tool_calls in request"})
		return
	}

	var calls []batch.ToolCall
	if err := json.Unmarshal(raw, &calls); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "tool_calls must be an array of tool calls"})
		return
	}

	s.writeToolCalls(w, r, calls, instrumentation.CallerWebhook)
}

func (s *HTTPServer) handleWebhookInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ready",
		"webhook_url": "/elevenlabs/webhook",
		"method":      http.MethodPost,
		"description": "ElevenLabs webhook endpoint for agent tool calls",
	})
}

// handleListOpenAITools lists the tools in OpenAI function-calling format.
func (s *HTTPServer) handleListOpenAITools(w http.ResponseWriter, _ *http.Request) {
	tools := s.catalog.Tools()
	out := make([]openAITool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleListMCPTools(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, 1, toolsResult{Tools: s.catalog.Tools()})
}

func (s *HTTPServer) handleListElevenLabsTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toolsResult{Tools: s.catalog.Tools()})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "ok")
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status                   string `json:"status"`
	CalendarServiceAvailable bool   `json:"calendar_service_available"`
	CalendarID               string `json:"calendar_id"`
	Backend                  string `json:"backend"`
	ToolsCount               int    `json:"tools_count"`
	Timestamp                string `json:"timestamp"`
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:                   "running",
		CalendarServiceAvailable: s.sc.BackendConfigured(),
		CalendarID:               s.sc.CalendarID(),
		Backend:                  s.sc.Config().Calendar.Backend,
		ToolsCount:               len(s.catalog.Tools()),
		Timestamp:                s.sc.Now().Format(time.RFC3339),
	})
}
