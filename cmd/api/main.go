package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/sales-assistant/docs"
	"github.com/straye-as/sales-assistant/internal/auth"
	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/database"
	"github.com/straye-as/sales-assistant/internal/erp"
	"github.com/straye-as/sales-assistant/internal/http/handler"
	"github.com/straye-as/sales-assistant/internal/http/middleware"
	"github.com/straye-as/sales-assistant/internal/http/router"
	"github.com/straye-as/sales-assistant/internal/jobs"
	"github.com/straye-as/sales-assistant/internal/llm"
	"github.com/straye-as/sales-assistant/internal/logger"
	"github.com/straye-as/sales-assistant/internal/reply"
	"github.com/straye-as/sales-assistant/internal/repository"
	"github.com/straye-as/sales-assistant/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title Sales Assistant API
// @version 1.0
// @description Conversational sales assistant that turns chat messages into ERP quotations, orders and CRM opportunities.

// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the Azure AD access token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API key for service integrations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if basicCfg.App.Environment == "development" || basicCfg.App.Environment == "local" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In development: uses environment variables
	// In staging/production: may fetch from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	erpClient, err := erp.NewClient(&cfg.ERP, log.Named("erp"))
	if err != nil {
		return fmt.Errorf("failed to create ERP client: %w", err)
	}
	// A failed eager login is not fatal; the first chat call logs in again
	if err := erpClient.Connect(ctx); err != nil {
		log.Warn("ERP login failed at startup, continuing", zap.Error(err))
	}

	llmClient, err := llm.NewClient(&cfg.LLM, log.Named("llm"))
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	// Audit database (optional)
	var db *gorm.DB
	var auditRepo *repository.IntentAuditRepository
	if cfg.Audit.Enabled {
		db, err = database.NewDatabase(&cfg.Audit)
		if err != nil {
			return fmt.Errorf("failed to connect to audit database: %w", err)
		}
		// Postgres schemas are managed by cmd/migrate
		if cfg.Audit.Driver == "sqlite" {
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("failed to migrate audit database: %w", err)
			}
		}
		auditRepo = repository.NewIntentAuditRepository(db)
		log.Info("Intent audit enabled", zap.String("driver", cfg.Audit.Driver))
	} else {
		log.Info("Intent audit disabled")
	}

	// Repositories
	partnerRepo := repository.NewPartnerRepository(erpClient)
	productRepo := repository.NewProductRepository(erpClient)
	pricelistRepo := repository.NewPricelistRepository(erpClient)
	orderRepo := repository.NewSaleOrderRepository(erpClient)
	leadRepo := repository.NewLeadRepository(erpClient)

	// Services
	formatter := reply.NewFormatter(cfg.Assistant.CurrencyLabel)
	customerService := service.NewCustomerService(partnerRepo, pricelistRepo, formatter, cfg.Assistant, log)
	productService := service.NewProductService(productRepo, pricelistRepo, customerService, formatter, cfg.Assistant, log)
	orderService := service.NewOrderService(orderRepo, customerService, productService, formatter, cfg.Assistant, log)
	crmService := service.NewCRMService(leadRepo, partnerRepo, customerService, productService, formatter, log)
	dispatcher := service.NewDispatcher(customerService, productService, orderService, crmService, log)
	auditService := service.NewAuditLogService(auditRepo, log)
	chatService := service.NewChatService(llmClient, dispatcher, auditService, cfg.Assistant.DefaultSalesRep, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(&cfg.Auth, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Handlers
	chatHandler := handler.NewChatHandler(chatService, log)
	healthHandler := handler.NewHealthHandler(erpClient, db, log)
	auditHandler := handler.NewAuditHandler(auditService, log)

	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, chatHandler, healthHandler, auditHandler)

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterERPHealthJob(scheduler, erpClient, log, cfg.Jobs.ERPHealthCron, cfg.Jobs.JobTimeoutDuration()); err != nil {
			log.Error("Failed to register ERP health job", zap.Error(err))
		}
		if auditService.Enabled() {
			if err := jobs.RegisterAuditRetentionJob(
				scheduler,
				auditService,
				log,
				cfg.Jobs.AuditPurgeCron,
				cfg.Audit.RetentionDuration(),
				cfg.Jobs.JobTimeoutDuration(),
			); err != nil {
				log.Error("Failed to register audit retention job", zap.Error(err))
			}
		}
		scheduler.Start()
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// In-flight audit writes finish before the database goes away
		auditService.Wait()
		if db != nil {
			if err := database.Close(db); err != nil {
				log.Warn("Error closing audit database", zap.Error(err))
			}
		}
		_ = erpClient.Close()

		log.Info("Server stopped gracefully")
	}

	return nil
}
