package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"localmind-client/pkg/store"
)

// Client talks HTTP+JSON to the LocalMIND backend. All retrieval,
// summarization and storage happen on the other side of this boundary;
// the client only ships requests and decodes responses.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// BuildPrompt assembles the final prompt for a turn (Building phase).
func (c *Client) BuildPrompt(ctx context.Context, req BuildPromptRequest) (*BuildPromptResult, error) {
	var result BuildPromptResult
	if err := c.do(ctx, http.MethodPost, "/prompt/build", req, &result); err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	return &result, nil
}

// InferWithPrompt runs inference over a built prompt (Inferring phase).
func (c *Client) InferWithPrompt(ctx context.Context, req InferRequest) (*InferResult, error) {
	var result InferResult
	if err := c.do(ctx, http.MethodPost, "/prompt/infer", req, &result); err != nil {
		return nil, fmt.Errorf("infer with prompt: %w", err)
	}
	return &result, nil
}

// SendChat is the direct mode entry point, bypassing staging.
func (c *Client) SendChat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	var result ChatResult
	if err := c.do(ctx, http.MethodPost, "/chat", req, &result); err != nil {
		return nil, fmt.Errorf("send chat: %w", err)
	}
	return &result, nil
}

// AnalyzeSnippet runs an isolated analysis with no session effect.
func (c *Client) AnalyzeSnippet(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	var result AnalyzeResult
	if err := c.do(ctx, http.MethodPost, "/analyze", req, &result); err != nil {
		return nil, fmt.Errorf("analyze snippet: %w", err)
	}
	return &result, nil
}

// ListModels returns the models installed on the backend.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var result struct {
		Models []ModelInfo `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/models", nil, &result); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return result.Models, nil
}

// ListMemories returns the backend's long-term memory entries.
func (c *Client) ListMemories(ctx context.Context) ([]store.MemoryNote, error) {
	var result struct {
		Memories []store.MemoryNote `json:"memories"`
	}
	if err := c.do(ctx, http.MethodGet, "/memories", nil, &result); err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return result.Memories, nil
}

// UpdateMemory rewrites one memory entry; the backend re-embeds it.
func (c *Client) UpdateMemory(ctx context.Context, id, content string) error {
	payload := struct {
		Content string `json:"content"`
	}{Content: content}
	path := "/memories/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, payload, nil); err != nil {
		return fmt.Errorf("update memory %s: %w", id, err)
	}
	return nil
}

// GetHistory fetches recent committed history from the backend.
func (c *Client) GetHistory(ctx context.Context) ([]HistoryEntry, error) {
	var result struct {
		History []HistoryEntry `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/history", nil, &result); err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return result.History, nil
}

// GetSummarizers reports which preferred summarizers are installed.
func (c *Client) GetSummarizers(ctx context.Context) (*SummarizerStatus, error) {
	var result SummarizerStatus
	if err := c.do(ctx, http.MethodGet, "/summarizers", nil, &result); err != nil {
		return nil, fmt.Errorf("get summarizers: %w", err)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
