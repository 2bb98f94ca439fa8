package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/prompt/build", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req BuildPromptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2:7b-instruct", req.Model)
		assert.Equal(t, "Hi", req.Message)
		assert.True(t, req.UseMemory)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"final_prompt": "=== SYSTEM ===\nsys",
			"meta":         map[string]interface{}{"token_estimate": 512},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.BuildPrompt(context.Background(), BuildPromptRequest{
		Model:     "qwen2:7b-instruct",
		Message:   "Hi",
		UseMemory: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "=== SYSTEM ===\nsys", result.FinalPrompt)
	assert.NotEmpty(t, result.Meta, "meta passes through opaquely")
}

func TestInferWithPromptReturnsMemory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prompt/infer", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response":   "Hello!",
			"new_memory": map[string]string{"id": "abc123", "content": "greets in English"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.InferWithPrompt(context.Background(), InferRequest{
		FinalPrompt: "=== SYSTEM ===\nsys",
		Model:       "qwen2:7b-instruct",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", result.Response)
	require.NotNil(t, result.NewMemory)
	assert.Equal(t, "abc123", result.NewMemory.ID)
}

func TestSendChatOmitsEmptySummarizer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, present := raw["summarizer_model"]
		assert.False(t, present, "empty summarizer_model must be omitted")
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.SendChat(context.Background(), ChatRequest{Message: "Hi", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Response)
	assert.Nil(t, result.NewMemory)
}

func TestListEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"models": []map[string]string{{"name": "qwen2:7b-instruct"}, {"name": "phi3"}},
			})
		case "/memories":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"memories": []map[string]string{{"id": "m1", "content": "likes Go"}},
			})
		case "/history":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"history": []map[string]string{
					{"role": "user", "content": "Hi"},
					{"role": "assistant", "content": "Hello!"},
				},
			})
		case "/summarizers":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"available": []string{"qwen2.5:0.5b-instruct"},
				"missing":   []string{"llama3.2:1b"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	models, err := client.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "qwen2:7b-instruct", models[0].Name)

	memories, err := client.ListMemories(ctx)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "likes Go", memories[0].Content)

	history, err := client.GetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)

	status, err := client.GetSummarizers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen2.5:0.5b-instruct"}, status.Available)
	assert.Equal(t, []string{"llama3.2:1b"}, status.Missing)
}

func TestUpdateMemoryEscapesID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		require.Equal(t, http.MethodPut, r.Method)
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.NoError(t, client.UpdateMemory(context.Background(), "mem/1", "new content"))
	assert.Equal(t, "/memories/mem%2F1", gotPath)
}

func TestBackendErrorSurfacesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"model not found"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.SendChat(context.Background(), ChatRequest{Message: "Hi", Model: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "model not found")
}

func TestRequestHonorsContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.BuildPrompt(ctx, BuildPromptRequest{Message: "Hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
