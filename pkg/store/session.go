package store

import "time"

// MemoryNote is an auxiliary fact proposed by the backend's summarizer
// alongside an inference response. Informational only; it never drives
// a phase transition.
type MemoryNote struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// StagingSession represents the single in-flight user turn in memory.
// At most one staging session is active per client instance.
type StagingSession struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Phase string `json:"phase"` // "IDLE" | "BUILDING" | ... see constants below

	// THE ORIGINAL TURN (immutable once staging begins)
	OriginalInput string `json:"original_input"`

	// THE WORKBENCH (the orchestrated prompt being inspected/edited)
	PromptText string `json:"prompt_text"`

	// THE DRAFT (model response for the current PromptText; nil until
	// inference completes, cleared whenever the prompt is edited)
	PreviewText *string `json:"preview_text"`

	// Last recoverable error surfaced to the caller
	LastError string `json:"last_error,omitempty"`

	// Proposed fact attached by the inference side-channel
	ProposedMemory *MemoryNote `json:"proposed_memory,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	PhaseIdle           = "IDLE"
	PhaseBuilding       = "BUILDING"
	PhaseReadyForReview = "READY_FOR_REVIEW"
	PhaseInferring      = "INFERRING"
	PhasePreviewed      = "PREVIEWED"
	PhaseCommitted      = "COMMITTED"
	PhaseDiscarded      = "DISCARDED"
	PhaseFailed         = "FAILED"
)

// Busy reports whether a backend operation is outstanding for the session.
// The prompt is read-only while busy.
func (s *StagingSession) Busy() bool {
	return s.Phase == PhaseBuilding || s.Phase == PhaseInferring
}

// Terminal reports whether the session has reached a terminal phase.
// A new turn may only start from IDLE or a terminal phase.
func (s *StagingSession) Terminal() bool {
	return s.Phase == PhaseCommitted || s.Phase == PhaseDiscarded || s.Phase == PhaseFailed
}
