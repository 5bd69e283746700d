package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mindtek/leadchat/internal/chat"
	"github.com/mindtek/leadchat/internal/lead"
	"github.com/mindtek/leadchat/internal/llm"
	"github.com/mindtek/leadchat/internal/server"
	"github.com/mindtek/leadchat/internal/storage"
	"github.com/mindtek/leadchat/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; chat and lead analysis will fail")
	}

	// Initialize storage
	var store storage.ConversationStore
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStore()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStore(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the model client
	completer := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)

	// Initialize services
	chatService := chat.NewService(store, completer, chat.Config{
		MaxMessages: cfg.Chat.MaxMessages,
		MaxTokens:   cfg.OpenAI.ChatMaxTokens,
		Temperature: cfg.OpenAI.ChatTemperature,
	}, logger)

	analyzer := lead.NewAnalyzer(store, completer, lead.Config{
		MaxTokens:   cfg.OpenAI.AnalysisMaxTokens,
		Temperature: cfg.OpenAI.AnalysisTemperature,
	}, logger)

	// Wire the HTTP surface
	handler := server.NewHandler(chatService, analyzer, logger)
	router := server.NewRouter(handler)

	logger.Info("Starting server", zap.Int("port", cfg.Server.Port))
	if err := router.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
