package events

import "time"

// TopicStaging carries all staging session lifecycle events.
const TopicStaging = "staging.session"

const (
	TypePhaseChanged   = "STAGING_PHASE_CHANGED"
	TypePreviewReady   = "STAGING_PREVIEW_READY"
	TypeBuildDegraded  = "STAGING_BUILD_DEGRADED"
	TypeMemoryProposed = "STAGING_MEMORY_PROPOSED"
)

// PhaseChanged signals a staging session phase transition.
func PhaseChanged(sessionID, from, to string) Event {
	return BaseEvent{
		Type: TypePhaseChanged,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"from":       from,
			"to":         to,
		},
		OccurredAt: time.Now(),
	}
}

// PreviewReady signals that a draft response is available for review.
func PreviewReady(sessionID, preview string) Event {
	return BaseEvent{
		Type: TypePreviewReady,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"preview":    preview,
		},
		OccurredAt: time.Now(),
	}
}

// BuildDegraded signals that a build failed or timed out and the
// session degraded to review with an annotated partial prompt.
func BuildDegraded(sessionID, reason string) Event {
	return BaseEvent{
		Type: TypeBuildDegraded,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}

// MemoryProposed signals an auxiliary fact the backend summarizer
// attached to an inference response.
func MemoryProposed(sessionID, memoryID, content string) Event {
	return BaseEvent{
		Type: TypeMemoryProposed,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"memory_id":  memoryID,
			"content":    content,
		},
		OccurredAt: time.Now(),
	}
}
