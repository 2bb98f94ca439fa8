package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"localmind-client/internal/config"
	"localmind-client/internal/constant"
	"localmind-client/internal/entity"
	"localmind-client/internal/pkg/logger"
	"localmind-client/internal/repository/memory"
	"localmind-client/pkg/backend"
	"localmind-client/pkg/store"

	"github.com/google/uuid"
)

// IChatService defines the chat service interface
type IChatService interface {
	SendDirect(ctx context.Context, message string) (string, error)
	Analyze(ctx context.Context, snippet, instruction string) (string, error)
	History(ctx context.Context) ([]entity.ChatMessage, error)
	Memories(ctx context.Context) ([]store.MemoryNote, error)
	UpdateMemory(ctx context.Context, id, content string) error
	Models(ctx context.Context) ([]backend.ModelInfo, error)
	Summarizers(ctx context.Context) (*backend.SummarizerStatus, error)
}

type chatService struct {
	client      *backend.Client
	historyRepo *memory.HistoryRepository
	memoryRepo  *memory.MemoryRepository
	cfg         *config.Config
	log         logger.ILogger
}

func NewChatService(
	client *backend.Client,
	historyRepo *memory.HistoryRepository,
	memoryRepo *memory.MemoryRepository,
	cfg *config.Config,
	log logger.ILogger,
) IChatService {
	return &chatService{
		client:      client,
		historyRepo: historyRepo,
		memoryRepo:  memoryRepo,
		cfg:         cfg,
		log:         log,
	}
}

// SendDirect bypasses staging: one round trip, committed immediately.
func (s *chatService) SendDirect(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("message is empty")
	}

	result, err := s.client.SendChat(ctx, backend.ChatRequest{
		Message:         message,
		Model:           s.cfg.Chat.Model,
		SystemPrompt:    s.cfg.Chat.SystemPrompt,
		UseMemory:       s.cfg.Chat.UseMemory,
		SummarizerModel: s.cfg.Chat.SummarizerModel,
	})
	if err != nil {
		s.log.Error("CHAT", "direct send failed", map[string]interface{}{"error": err.Error()})
		return "", fmt.Errorf("failed to send chat: %w", err)
	}

	now := time.Now()
	s.historyRepo.Append(constant.DefaultConversationId,
		entity.ChatMessage{
			Id:             uuid.New(),
			Role:           constant.ChatMessageRoleUser,
			Content:        message,
			ConversationId: constant.DefaultConversationId,
			CreatedAt:      now,
		},
		entity.ChatMessage{
			Id:             uuid.New(),
			Role:           constant.ChatMessageRoleAssistant,
			Content:        result.Response,
			ConversationId: constant.DefaultConversationId,
			CreatedAt:      now,
		},
	)

	if result.NewMemory != nil {
		s.memoryRepo.Upsert(*result.NewMemory)
		s.log.Info("CHAT", "memory proposed by backend", map[string]interface{}{"memory_id": result.NewMemory.ID})
	}

	return result.Response, nil
}

// Analyze sends a free-standing snippet for analysis. Nothing is appended
// to conversation history.
func (s *chatService) Analyze(ctx context.Context, snippet, instruction string) (string, error) {
	if strings.TrimSpace(snippet) == "" {
		return "", fmt.Errorf("snippet is empty")
	}

	result, err := s.client.AnalyzeSnippet(ctx, backend.AnalyzeRequest{
		Snippet:     snippet,
		Instruction: instruction,
		Model:       s.cfg.Chat.Model,
	})
	if err != nil {
		return "", fmt.Errorf("failed to analyze snippet: %w", err)
	}
	return result.Result, nil
}

// History prefers the backend transcript; the local repository is the
// fallback when the backend is unreachable.
func (s *chatService) History(ctx context.Context) ([]entity.ChatMessage, error) {
	remote, err := s.client.GetHistory(ctx)
	if err != nil {
		s.log.Warn("CHAT", "history fetch failed, using local copy", map[string]interface{}{"error": err.Error()})
		return s.historyRepo.List(constant.DefaultConversationId), nil
	}

	messages := make([]entity.ChatMessage, 0, len(remote))
	for _, m := range remote {
		messages = append(messages, entity.ChatMessage{
			Id:             uuid.New(),
			Role:           m.Role,
			Content:        m.Content,
			ConversationId: constant.DefaultConversationId,
		})
	}
	return messages, nil
}

func (s *chatService) Memories(ctx context.Context) ([]store.MemoryNote, error) {
	notes, err := s.client.ListMemories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	s.memoryRepo.Replace(notes)
	return notes, nil
}

func (s *chatService) UpdateMemory(ctx context.Context, id, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("memory content is empty")
	}
	if err := s.client.UpdateMemory(ctx, id, content); err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}
	s.memoryRepo.Upsert(store.MemoryNote{ID: id, Content: content})
	return nil
}

func (s *chatService) Models(ctx context.Context) ([]backend.ModelInfo, error) {
	models, err := s.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

func (s *chatService) Summarizers(ctx context.Context) (*backend.SummarizerStatus, error) {
	status, err := s.client.GetSummarizers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check summarizers: %w", err)
	}
	return status, nil
}
