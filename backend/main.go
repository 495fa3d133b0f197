package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"testengine/backend/config"
	"testengine/backend/events"
	"testengine/backend/models"
	"testengine/backend/repository"
	"testengine/backend/routes"
	"testengine/backend/scheduler"
	"testengine/backend/seed"
	"testengine/backend/services/testsession"
	"testengine/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Initialize database
	db, err := utils.InitDB(cfg, utils.WithPrefix(logger, "[gorm] "))
	if err != nil {
		logger.Fatalf("Error initializing database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}

	if cfg.SeedFile != "" {
		fx, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			logger.Fatalf("Error loading seed file: %v", err)
		}
		sum, err := seed.Apply(context.Background(), db, fx)
		if err != nil {
			logger.Fatalf("Error applying seed: %v", err)
		}
		logger.Printf("seed applied: users=%d tests=%d subscriptions=%d", sum.Users, sum.Tests, sum.Subscriptions)
	}

	// Collaborators of the engine
	var definitions testsession.DefinitionStore = repository.NewDefinitionRepository(db)
	if cfg.RedisAddr != "" {
		client, err := repository.NewRedisClient(cfg)
		if err != nil {
			logger.Printf("redis unavailable, definition cache disabled: %v", err)
		} else {
			defer client.Close()
			definitions = repository.NewCachedDefinitions(definitions, client, cfg.DefinitionCacheTTL, utils.WithPrefix(logger, "[cache] "))
		}
	}

	publisher, err := events.NewEventPublisher(cfg.AMQPURL, cfg.AMQPExchange, utils.WithPrefix(logger, "[events] "))
	if err != nil {
		logger.Fatalf("Error initializing event publisher: %v", err)
	}
	defer publisher.Close()

	engine := testsession.NewService(db, testsession.Options{
		Definitions:  definitions,
		Questions:    repository.NewQuestionRepository(db),
		Entitlements: repository.NewSubscriptionRepository(db),
		Users:        repository.NewUserRepository(db),
		Publisher:    publisher,
		Logger:       utils.WithPrefix(logger, "[testsession] "),
		AnswerGrace:  cfg.AnswerGrace,
	})

	if cfg.SessionSweepCron != "" {
		sweeper, err := scheduler.StartSessionSweeper(cfg.SessionSweepCron, engine, logger)
		if err != nil {
			logger.Fatalf("Error starting session sweeper: %v", err)
		}
		defer sweeper.Stop()
	}

	// Create Fiber app
	app := routes.NewApp(cfg, logger)

	// Setup routes
	routes.SetupRoutes(app, db, cfg, engine, logger)

	// Start server
	go func() {
		logger.Printf("listening on :%s", cfg.ServerPort)
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
