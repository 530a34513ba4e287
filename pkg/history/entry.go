// Package history models and persists per-project conversations. Each
// project gets one JSON record holding its named sessions; each session is an
// ordered list of prompt/response entries.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Kind describes how an entry's prompt was produced.
type Kind string

const (
	// KindInteractive is a prompt typed by the operator
	KindInteractive Kind = "interactive"
	// KindOrchestrator is a prompt assembled by the workflow orchestrator
	KindOrchestrator Kind = "orchestrator"
	// KindAgent is a prompt issued on behalf of the external agent
	KindAgent Kind = "agent"
)

// TokenUsage holds the counters a backend reported for one exchange.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// IsZero reports whether no counters were recorded.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// Entry is one prompt/response exchange. Entries are immutable once created.
type Entry struct {
	ID           string      `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	Kind         Kind        `json:"prompt_type"`
	PromptText   string      `json:"prompt_text"`
	ResponseText string      `json:"response_text"`
	ModelUsed    string      `json:"model_used"`
	TokenUsage   *TokenUsage `json:"token_usage,omitempty"`
}

// NewEntry creates an entry stamped with the current time. The ID is derived
// from the timestamp and the first 100 characters of the prompt, so it is
// stable across save and reload. Eight hex characters is a display
// identifier, not a storage key.
func NewEntry(kind Kind, promptText, responseText, modelUsed string, usage *TokenUsage) Entry {
	ts := time.Now()
	return Entry{
		ID:           entryID(ts, promptText),
		Timestamp:    ts,
		Kind:         kind,
		PromptText:   promptText,
		ResponseText: responseText,
		ModelUsed:    modelUsed,
		TokenUsage:   usage,
	}
}

func entryID(ts time.Time, promptText string) string {
	prefix := promptText
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	sum := sha256.Sum256([]byte(ts.Format(time.RFC3339Nano) + prefix))
	return hex.EncodeToString(sum[:])[:8]
}

// Preview returns a single-line excerpt of the prompt for list displays.
func (e Entry) Preview(maxLength int) string {
	preview := strings.TrimSpace(strings.ReplaceAll(e.PromptText, "\n", " "))
	if runes := []rune(preview); maxLength > 0 && len(runes) > maxLength {
		preview = string(runes[:maxLength]) + "..."
	}
	return preview
}

// FormattedTime returns a short human-readable timestamp.
func (e Entry) FormattedTime() string {
	return e.Timestamp.Format("01/02 15:04")
}
