package executor

import (
	"encoding/json"
	"strings"
)

// StructuredResponse is the single JSON record the agent emits when asked
// for structured output. All fields are optional on the wire; Result and
// Message are pointers so presence survives decoding.
type StructuredResponse struct {
	IsError           bool               `json:"is_error"`
	ErrorMessage      string             `json:"error_message"`
	SessionID         string             `json:"session_id"`
	Result            *string            `json:"result"`
	Message           *string            `json:"message"`
	PermissionDenials []PermissionDenial `json:"permission_denials"`
	Usage             *UsageCounters     `json:"usage"`
}

// UsageCounters are the token counts the agent reports for one run.
type UsageCounters struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// PermissionDenial records one tool use the agent was not permitted.
type PermissionDenial struct {
	Tool   string `json:"tool_name"`
	Reason string `json:"reason,omitempty"`
}

// Response is the decoded agent output: either a structured record or the
// raw stdout as plain text. Exactly one arm is set.
type Response struct {
	Structured *StructuredResponse
	Plain      string
}

// EmptyResultText is substituted when a structured response carries no
// usable text, which usually means the agent performed file edits instead
// of answering in prose.
const EmptyResultText = "Agent completed the task. Check your files for changes."

// DecodeResponse interprets agent stdout. A parse failure is not an error:
// plan-mode output is often unstructured prose, so the whole stdout becomes
// the plain-text arm.
func DecodeResponse(stdout []byte) Response {
	raw := strings.TrimSpace(string(stdout))

	var structured StructuredResponse
	if err := json.Unmarshal([]byte(raw), &structured); err != nil || !looksStructured(raw) {
		return Response{Plain: raw}
	}

	return Response{Structured: &structured}
}

// looksStructured rejects JSON scalars: a bare string or number parses but
// is not the agent's record shape.
func looksStructured(raw string) bool {
	return strings.HasPrefix(raw, "{")
}

// Text resolves the answer text of a non-error response: the result field
// if present, else the message field, else the raw form; an empty resolved
// text becomes EmptyResultText so success is never silent.
func (r Response) Text(raw string) string {
	if r.Structured == nil {
		if strings.TrimSpace(r.Plain) == "" {
			return EmptyResultText
		}
		return r.Plain
	}

	var text string
	switch {
	case r.Structured.Result != nil:
		text = *r.Structured.Result
	case r.Structured.Message != nil:
		text = *r.Structured.Message
	default:
		text = raw
	}

	if strings.TrimSpace(text) == "" {
		return EmptyResultText
	}
	return text
}
