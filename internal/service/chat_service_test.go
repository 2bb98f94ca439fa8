package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"localmind-client/internal/config"
	"localmind-client/internal/constant"
	"localmind-client/internal/repository/memory"
	"localmind-client/pkg/backend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func newTestService(t *testing.T, handler http.Handler) (IChatService, *memory.HistoryRepository, *memory.MemoryRepository) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	historyRepo := memory.NewHistoryRepository()
	memoryRepo := memory.NewMemoryRepository()
	cfg := &config.Config{
		Chat: config.ChatConfig{
			Model:           "qwen2:7b-instruct",
			SummarizerModel: "qwen2.5:0.5b-instruct",
			SystemPrompt:    "You are a helpful local assistant.",
			UseMemory:       true,
		},
	}
	svc := NewChatService(backend.NewClient(server.URL), historyRepo, memoryRepo, cfg, nopLogger{})
	return svc, historyRepo, memoryRepo
}

func TestSendDirectAppendsTurnAndStoresMemory(t *testing.T) {
	var gotBody map[string]interface{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response":   "hello there",
			"new_memory": map[string]string{"id": "mem-1", "content": "likes short answers"},
		})
	})
	svc, historyRepo, memoryRepo := newTestService(t, handler)

	response, err := svc.SendDirect(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", response)

	assert.Equal(t, "qwen2:7b-instruct", gotBody["model"])
	assert.Equal(t, true, gotBody["use_memory"])

	turns := historyRepo.List(constant.DefaultConversationId)
	require.Len(t, turns, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, turns[1].Role)

	notes := memoryRepo.List()
	require.Len(t, notes, 1)
	assert.Equal(t, "mem-1", notes[0].ID)
}

func TestSendDirectRejectsEmptyMessage(t *testing.T) {
	svc, historyRepo, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend should not be called")
	}))

	_, err := svc.SendDirect(context.Background(), "   ")
	require.Error(t, err)
	assert.Empty(t, historyRepo.List(constant.DefaultConversationId))
}

func TestSendDirectFailureLeavesHistoryUntouched(t *testing.T) {
	svc, historyRepo, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusInternalServerError)
	}))

	_, err := svc.SendDirect(context.Background(), "hi")
	require.Error(t, err)
	assert.Empty(t, historyRepo.List(constant.DefaultConversationId))
}

func TestHistoryFallsBackToLocalCopy(t *testing.T) {
	svc, historyRepo, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unreachable", http.StatusBadGateway)
	}))

	_, err := svc.SendDirect(context.Background(), "hi")
	require.Error(t, err)
	require.Empty(t, historyRepo.List(constant.DefaultConversationId))

	messages, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMemoriesMirrorsBackendList(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/memories", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"memories": []map[string]string{
				{"id": "mem-2", "content": "works on weekends"},
				{"id": "mem-1", "content": "prefers Go"},
			},
		})
	})
	svc, _, memoryRepo := newTestService(t, handler)

	notes, err := svc.Memories(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 2)

	mirrored := memoryRepo.List()
	require.Len(t, mirrored, 2)
	assert.Equal(t, "mem-1", mirrored[0].ID)
}

func TestUpdateMemoryUpsertsLocalMirror(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/memories/mem-1", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})
	svc, _, memoryRepo := newTestService(t, handler)

	require.NoError(t, svc.UpdateMemory(context.Background(), "mem-1", "updated fact"))

	notes := memoryRepo.List()
	require.Len(t, notes, 1)
	assert.Equal(t, "updated fact", notes[0].Content)
}

func TestAnalyzeDoesNotTouchHistory(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/analyze", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"result": "looks fine"})
	})
	svc, historyRepo, _ := newTestService(t, handler)

	result, err := svc.Analyze(context.Background(), "func main() {}", "review this")
	require.NoError(t, err)
	assert.Equal(t, "looks fine", result)
	assert.Empty(t, historyRepo.List(constant.DefaultConversationId))
}
