package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// ToolCall is a single entry of a webhook tool_calls array.
type ToolCall struct {
	ID       any          `json:"id"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its arguments, either as a JSON
// object or as a string containing a JSON object.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Request is the body of a webhook call.
type Request struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// Result is the outcome of one tool call. Exactly one of Result and Error is set.
type Result struct {
	ToolCallID any    `json:"tool_call_id"`
	Result     string `json:"result"`
	Error      string `json:"error,omitempty"`
}

// MarshalJSON writes either result or error. A successful call always
// carries result, even when the tool printed nothing.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			ToolCallID any    `json:"tool_call_id"`
			Error      string `json:"error"`
		}{r.ToolCallID, r.Error})
	}
	return json.Marshal(struct {
		ToolCallID any    `json:"tool_call_id"`
		Result     string `json:"result"`
	}{r.ToolCallID, r.Result})
}

// Response is the body returned to the webhook caller.
type Response struct {
	Results []Result `json:"results"`
}

// Executor runs the named tool and returns its text output.
type Executor func(ctx context.Context, name string, args map[string]any) (string, error)

// ParseArguments decodes tool call arguments. Missing or null arguments and
// the empty string yield an empty map.
func ParseArguments(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("invalid arguments string: %w", err)
		}
		if encoded == "" {
			return map[string]any{}, nil
		}
		raw = []byte(encoded)
	}

	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return args, nil
}

// Process executes calls in order. Calls without a function name are skipped.
func Process(ctx context.Context, calls []ToolCall, exec Executor) []Result {
	results := make([]Result, 0, len(calls))

	for _, call := range calls {
		if call.Function.Name == "" {
			continue
		}

		args, err := ParseArguments(call.Function.Arguments)
		if err != nil {
			results = append(results, NewErrorResult(call.ID, err))
			continue
		}

		out, err := exec(ctx, call.Function.Name, args)
		if err != nil {
			results = append(results, NewErrorResult(call.ID, err))
			continue
		}
		results = append(results, NewSuccessResult(call.ID, out))
	}

	return results
}

// Failed counts the results that carry an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Error != "" {
			n++
		}
	}
	return n
}

// NewSuccessResult creates a success result
func NewSuccessResult(id any, message string) Result {
	return Result{
		ToolCallID: id,
		Result:     message,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id any, err error) Result {
	return Result{
		ToolCallID: id,
		Error:      err.Error(),
	}
}
