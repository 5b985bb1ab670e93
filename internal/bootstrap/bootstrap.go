package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/config"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/ports"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/usecase"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/infrastructure/llm/openai"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/infrastructure/repository/postgres"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/infrastructure/resilience"
	tracenats "github.com/Stefs-2142/ai-engineering-bootcamp/internal/infrastructure/trace/nats"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	RouterUC     ports.QuestionRouter
	HybridUC     ports.HybridPipeline
	SemanticUC   ports.SemanticPipeline
	StructuredUC ports.StructuredPipeline
	ChatUC       ports.ChatService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewProductRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	guardCfg := resilience.DefaultConfig()
	guardCfg.BreakerEnabled = cfg.BreakerEnabled
	guard := resilience.NewGuard(guardCfg)

	llmClient := openai.New(openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		GenModel:   cfg.OpenAIGenModel,
		EmbedModel: cfg.OpenAIEmbedModel,
		Guard:      guard,
	})

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, qdrant.WithGuard(guard))

	// Usage tracing is optional; without a NATS URL token usage is simply
	// not exported.
	var usageSink ports.UsageSink
	var traceSink *tracenats.Sink
	if cfg.NATSURL != "" {
		traceSink, err = tracenats.New(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init usage sink: %w", err)
		}
		usageSink = traceSink
	}

	routerUC := usecase.NewRouter(llmClient, usageSink)
	hybridUC := usecase.NewHybridUseCase(repo, llmClient, vectorDB, llmClient, routerUC, usageSink)
	semanticUC := usecase.NewSemanticUseCase(llmClient, vectorDB, llmClient, usageSink)
	structuredUC := usecase.NewSQLUseCase(llmClient, repo, usageSink)
	chatUC := usecase.NewChatUseCase(routerUC, hybridUC, semanticUC, structuredUC, cfg.RetrievalTopK)

	return &App{
		Config: cfg,

		RouterUC:     routerUC,
		HybridUC:     hybridUC,
		SemanticUC:   semanticUC,
		StructuredUC: structuredUC,
		ChatUC:       chatUC,

		closeFn: func() {
			if traceSink != nil {
				traceSink.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
