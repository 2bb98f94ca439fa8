package memory

import (
	"localmind-client/internal/entity"

	"github.com/patrickmn/go-cache"
)

// HistoryRepository holds committed chat history per conversation.
// Append is the only mutation; a commit appends its user and assistant
// messages in a single call so history never carries half a turn.
type HistoryRepository struct {
	cache *cache.Cache
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *HistoryRepository) Append(conversationID string, messages ...entity.ChatMessage) {
	existing := r.List(conversationID)
	existing = append(existing, messages...)
	r.cache.Set(conversationID, existing, cache.NoExpiration)
}

// List returns a copy; callers cannot mutate stored history.
func (r *HistoryRepository) List(conversationID string) []entity.ChatMessage {
	if x, found := r.cache.Get(conversationID); found {
		stored := x.([]entity.ChatMessage)
		out := make([]entity.ChatMessage, len(stored))
		copy(out, stored)
		return out
	}
	return nil
}

func (r *HistoryRepository) Clear(conversationID string) {
	r.cache.Delete(conversationID)
}
