package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/infrastructure"
	"project_chatflow/internal/interfaces"
	httpiface "project_chatflow/internal/interfaces/http"
	"project_chatflow/internal/repository"
	"project_chatflow/internal/usecases"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := infrastructure.LoadConfig()

	log, err := infrastructure.NewLogger(cfg.Mode)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer log.Sync()

	// NewPostgresClient runs the schema migration before returning.
	pgClient, err := infrastructure.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer pgClient.Close()

	redisClient, err := infrastructure.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	// Repositories
	tenantRepo := repository.NewTenantRepository(pgClient.Pool)
	contactRepo := repository.NewContactRepository(pgClient.Pool)
	conversationRepo := repository.NewConversationRepository(pgClient.Pool)
	messageRepo := repository.NewMessageRepository(pgClient.Pool)
	automationRepo := repository.NewAutomationRepository(pgClient.Pool)
	aiRepo := repository.NewAIRepository(pgClient.Pool)
	templateRepo := repository.NewTemplateRepository(pgClient.Pool)
	campaignRepo := repository.NewCampaignRepository(pgClient.Pool)

	// The fallback tenant for channels without a routing key. Resolved
	// once here; workers receive the id explicitly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defaultTenant, err := tenantRepo.FirstActive(ctx)
	if err != nil {
		log.Fatal("no active tenant configured", "error", err)
	}
	log.Info("default tenant resolved", "tenant", defaultTenant.ID, "name", defaultTenant.Name)

	// Channel and AI provider clients
	sender := usecases.NewChannelSender(log,
		infrastructure.NewWhatsAppClient(),
		infrastructure.NewMetaDMClient(),
		infrastructure.NewTelegramClient(),
	)
	providers := map[string]interfaces.AIClient{
		entities.ProviderGemini: infrastructure.NewGeminiClient(),
		entities.ProviderOpenAI: infrastructure.NewOpenAIClient(),
	}

	// Usecases
	normalizer := usecases.NewNormalizer(log)
	replyService := usecases.NewReplyService(log, automationRepo, aiRepo, messageRepo, providers)
	inboundWorker := usecases.NewInboundWorker(log, redisClient, redisClient, pgClient.Pool,
		normalizer, tenantRepo, contactRepo, conversationRepo, messageRepo, templateRepo,
		replyService, sender, defaultTenant.ID)

	outboundLog := usecases.NewOutboundLog(pgClient.Pool, conversationRepo, messageRepo)
	pacer := infrastructure.NewSendPacer(cfg.PaceInterval)
	campaignWorker := usecases.NewCampaignWorker(log, redisClient, campaignRepo,
		contactRepo, tenantRepo, templateRepo, sender, outboundLog, pacer)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		inboundWorker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		campaignWorker.Run(ctx)
	}()

	// HTTP webhook receiver
	gin.SetMode(ginMode(cfg.Mode))
	router := gin.New()
	router.Use(gin.Recovery())
	httpiface.SetupRoutes(router, httpiface.NewHandler(log, redisClient, cfg.VerifyToken))

	go func() {
		log.Info("webhook receiver listening", "port", cfg.Port)
		if err := router.Run(fmt.Sprintf(":%s", cfg.Port)); err != nil {
			log.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining workers")
	wg.Wait()
	log.Info("shutdown complete")
}

func ginMode(mode string) string {
	if mode == "debug" {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
