package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one committed half-turn in permanent history.
// History is append-only; messages are never edited or removed.
type ChatMessage struct {
	Id             uuid.UUID
	Role           string
	Content        string
	ConversationId string
	CreatedAt      time.Time
}
