package bootstrap

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"localmind-client/internal/config"
	"localmind-client/internal/pkg/logger"
	"localmind-client/internal/repository/memory"
	"localmind-client/internal/service"
	"localmind-client/pkg/backend"
	"localmind-client/pkg/events"
	"localmind-client/pkg/staging"
	"localmind-client/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	Config      *config.Config
	Logger      logger.ILogger
	Backend     *backend.Client
	ChatService service.IChatService
	Staging     *staging.Controller

	HistoryRepo *memory.HistoryRepository
	MemoryRepo  *memory.MemoryRepository
	SessionRepo *memory.SessionRepository

	// Subscriber feeds the REPL's event renderer.
	Subscriber message.Subscriber

	pubSub *gochannel.GoChannel
}

func NewContainer(cfg *config.Config, verbose bool) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, verbose)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Transport
	client := backend.NewClient(cfg.Backend.BaseURL)

	// 4. In-Memory Storage
	historyRepo := memory.NewHistoryRepository()
	memoryRepo := memory.NewMemoryRepository()
	sessionRepo := memory.NewSessionRepository()

	// 5. Staging Controller
	stagingLogger := initStagingLogger()
	controller := staging.NewController(
		staging.Config{
			Model:           cfg.Chat.Model,
			SystemPrompt:    cfg.Chat.SystemPrompt,
			SummarizerModel: cfg.Chat.SummarizerModel,
			UseMemory:       cfg.Chat.UseMemory,
			DisplayName:     cfg.Identity.DisplayName,
			Workspace:       cfg.Identity.Workspace,
			BuildTimeout:    time.Duration(cfg.Backend.BuildTimeoutSeconds) * time.Second,
		},
		client,
		historyRepo,
		sessionRepo,
		pubSub,
		stagingLogger,
	)

	// 6. Services
	chatService := service.NewChatService(client, historyRepo, memoryRepo, cfg, sysLogger)

	// Memories the backend proposes during staging land in the local
	// mirror as they stream by; the bus shuts the goroutine down.
	if memoryEvents, err := pubSub.Subscribe(context.Background(), events.TopicStaging); err != nil {
		sysLogger.Warn("BOOTSTRAP", "memory mirror subscription failed", map[string]interface{}{"error": err.Error()})
	} else {
		go mirrorProposedMemories(memoryEvents, memoryRepo)
	}

	sysLogger.Info("BOOTSTRAP", "container initialized", map[string]interface{}{
		"backend":  cfg.Backend.BaseURL,
		"model":    cfg.Chat.Model,
		"staging":  cfg.Chat.StagingEnabled,
		"memories": cfg.Chat.UseMemory,
	})

	return &Container{
		Config:      cfg,
		Logger:      sysLogger,
		Backend:     client,
		ChatService: chatService,
		Staging:     controller,
		HistoryRepo: historyRepo,
		MemoryRepo:  memoryRepo,
		SessionRepo: sessionRepo,
		Subscriber:  pubSub,
		pubSub:      pubSub,
	}
}

// StagingTopic is where phase and preview events land.
func (c *Container) StagingTopic() string {
	return events.TopicStaging
}

func (c *Container) Close() {
	if c.pubSub != nil {
		if err := c.pubSub.Close(); err != nil {
			c.Logger.Warn("BOOTSTRAP", "event bus close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	_ = c.Logger.Sync()
}

func mirrorProposedMemories(messages <-chan *message.Message, repo *memory.MemoryRepository) {
	for msg := range messages {
		var env events.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err == nil && env.Type == events.TypeMemoryProposed {
			id, _ := env.Data["memory_id"].(string)
			content, _ := env.Data["content"].(string)
			if id != "" {
				repo.Upsert(store.MemoryNote{ID: id, Content: content})
			}
		}
		msg.Ack()
	}
}

func initStagingLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "staging.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stderr, "[STAGING] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
