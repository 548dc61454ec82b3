package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mflix/webserver/internal/config"
	"github.com/mflix/webserver/internal/log"
	"github.com/mflix/webserver/internal/models/session"
	"github.com/mflix/webserver/internal/models/user"
	"github.com/mflix/webserver/internal/services"
	"github.com/mflix/webserver/internal/web"
)

func main() {
	envFile := flag.String("env", "secrets/.env", "path to the .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(fmt.Sprintf("Error loading configuration: %s", err))
	}

	// Create webserver logger
	logger, err := log.NewLogger(cfg.LogDevelopment, cfg.LogDebug, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Errorf("Web server stopped: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create a MongoDB client, shared by every manager
	clientOpts := options.Client().ApplyURI(cfg.MongoURI).SetTimeout(cfg.MongoTimeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("error creating MongoDB client: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Errorf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	// Create separate managers with the MongoDB client
	var userOpts []user.Option
	if cfg.MongoTransactions {
		userOpts = append(userOpts, user.WithTransactions())
	}
	sessionManager := session.NewSessionManager(client, cfg.MongoDatabase, logger.Named("sessions"))
	userManager := user.NewUserManager(client, cfg.MongoDatabase, sessionManager, logger.Named("users"), userOpts...)

	if err := sessionManager.EnsureIndexes(pingCtx); err != nil {
		return err
	}
	if err := userManager.EnsureIndexes(pingCtx); err != nil {
		return err
	}

	// Initialize services
	var events services.EventPublisher = services.NoopPublisher{}
	if url := cfg.RabbitMQURL(); url != "" {
		mqService, err := services.NewAMQPService(ctx, url, logger.Named("amqp"))
		if err != nil {
			return fmt.Errorf("error initializing AMQP service: %w", err)
		}
		events = mqService
	} else {
		logger.Info("RABBITMQ_IP not set, account events are not published")
	}
	defer events.Close()

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	clientService := services.NewClientService(userManager, sessionManager, tokens, events, logger.Named("client"))

	// Initialize web server
	server := web.NewWebServer(clientService, logger.Named("web"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down web server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}
