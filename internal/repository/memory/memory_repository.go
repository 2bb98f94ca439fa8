package memory

import (
	"sort"

	"localmind-client/pkg/store"

	"github.com/patrickmn/go-cache"
)

// MemoryRepository mirrors the backend's long-term memory list locally,
// including facts the summarizer proposed during this run.
type MemoryRepository struct {
	cache *cache.Cache
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *MemoryRepository) Upsert(note store.MemoryNote) {
	r.cache.Set(note.ID, note, cache.NoExpiration)
}

func (r *MemoryRepository) Replace(notes []store.MemoryNote) {
	r.cache.Flush()
	for _, note := range notes {
		r.cache.Set(note.ID, note, cache.NoExpiration)
	}
}

func (r *MemoryRepository) List() []store.MemoryNote {
	items := r.cache.Items()
	out := make([]store.MemoryNote, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(store.MemoryNote))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
