package batch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "object",
			raw:  `{"date": "2025-01-15", "duration": 30}`,
			want: map[string]any{"date": "2025-01-15", "duration": float64(30)},
		},
		{
			name: "JSON string",
			raw:  `"{\"date\": \"2025-01-15\", \"duration\": \"30\"}"`,
			want: map[string]any{"date": "2025-01-15", "duration": "30"},
		},
		{
			name: "missing",
			raw:  ``,
			want: map[string]any{},
		},
		{
			name: "null",
			raw:  `null`,
			want: map[string]any{},
		},
		{
			name: "empty string",
			raw:  `""`,
			want: map[string]any{},
		},
		{
			name:    "array",
			raw:     `[1, 2]`,
			wantErr: true,
		},
		{
			name:    "string with invalid JSON",
			raw:     `"{date: 2025-01-15}"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArguments(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArguments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseArguments() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("ParseArguments()[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestProcess(t *testing.T) {
	body := `{"tool_calls": [
		{"id": "call_1", "function": {"name": "echo", "arguments": {"text": "hello"}}},
		{"id": "call_2", "function": {"name": "fail", "arguments": "{}"}},
		{"id": "call_3", "function": {"arguments": {}}},
		{"id": "call_4", "function": {"name": "echo", "arguments": "not json"}},
		{"id": 5, "function": {"name": "echo", "arguments": "{\"text\": \"again\"}"}}
	]}`

	var req Request
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}

	exec := func(ctx context.Context, name string, args map[string]any) (string, error) {
		if name == "fail" {
			return "", errors.New("calendar unavailable")
		}
		return args["text"].(string), nil
	}

	results := Process(context.Background(), req.ToolCalls, exec)

	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4 (nameless call skipped)", len(results))
	}

	if results[0].ToolCallID != "call_1" || results[0].Result != "hello" {
		t.Errorf("results[0] = %+v, want call_1/hello", results[0])
	}
	if results[1].ToolCallID != "call_2" || results[1].Error != "calendar unavailable" {
		t.Errorf("results[1] = %+v, want call_2 with error", results[1])
	}
	if results[2].ToolCallID != "call_4" || !strings.Contains(results[2].Error, "arguments must be a JSON object") {
		t.Errorf("results[2] = %+v, want call_4 with argument error", results[2])
	}
	if results[3].ToolCallID != float64(5) || results[3].Result != "again" {
		t.Errorf("results[3] = %+v, want 5/again", results[3])
	}

	if got := Failed(results); got != 2 {
		t.Errorf("Failed() = %d, want 2", got)
	}
}

func TestResultJSON(t *testing.T) {
	out, err := json.Marshal(Response{Results: []Result{
		NewSuccessResult("a", "done"),
		NewErrorResult("b", errors.New("boom")),
		NewSuccessResult("c", ""),
	}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"results":[{"tool_call_id":"a","result":"done"},{"tool_call_id":"b","error":"boom"},{"tool_call_id":"c","result":""}]}`
	if string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}
