package backend

import (
	"encoding/json"

	"localmind-client/pkg/store"
)

// BuildPromptRequest asks the orchestrator to assemble the final prompt
// for one user turn from the system instruction, retrieved memory and
// session context.
type BuildPromptRequest struct {
	Model        string `json:"model"`
	Message      string `json:"message"`
	SystemPrompt string `json:"system_prompt"`
	UseMemory    bool   `json:"use_memory"`
	DisplayName  string `json:"display_name,omitempty"`
	Workspace    string `json:"workspace,omitempty"`
}

// BuildPromptResult carries the orchestrated prompt document. Meta is
// opaque to the client and passed through untouched.
type BuildPromptResult struct {
	FinalPrompt string          `json:"final_prompt"`
	Meta        json.RawMessage `json:"meta,omitempty"`
}

// InferRequest runs the main model against an already-built (possibly
// user-edited) prompt without rebuilding context.
type InferRequest struct {
	FinalPrompt     string `json:"final_prompt"`
	Model           string `json:"model"`
	Message         string `json:"message"`
	SummarizerModel string `json:"summarizer_model,omitempty"`
}

// InferResult is the model's draft response plus an optional fact the
// summarizer side-channel proposed for long-term memory.
type InferResult struct {
	Response  string            `json:"response"`
	NewMemory *store.MemoryNote `json:"new_memory,omitempty"`
}

// ChatRequest is the direct-mode request, bypassing staging entirely.
type ChatRequest struct {
	Message         string `json:"message"`
	Model           string `json:"model"`
	SystemPrompt    string `json:"system_prompt"`
	UseMemory       bool   `json:"use_memory"`
	SummarizerModel string `json:"summarizer_model,omitempty"`
}

// ChatResult mirrors InferResult for the direct path.
type ChatResult struct {
	Response  string            `json:"response"`
	NewMemory *store.MemoryNote `json:"new_memory,omitempty"`
}

// AnalyzeRequest runs an isolated one-off analysis over a text snippet.
// It has no session or history effect.
type AnalyzeRequest struct {
	Snippet     string `json:"snippet"`
	Instruction string `json:"instruction"`
	Model       string `json:"model"`
}

type AnalyzeResult struct {
	Result string `json:"result"`
}

// ModelInfo describes one installed model on the backend.
type ModelInfo struct {
	Name string `json:"name"`
}

// HistoryEntry is one committed message as the backend stores it.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SummarizerStatus lists which preferred summarizer models are
// installed and which are missing.
type SummarizerStatus struct {
	Available []string `json:"available"`
	Missing   []string `json:"missing"`
}
