package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	"daisychain/internal/brokers"
	"daisychain/internal/brokers/memory"
	"daisychain/internal/brokers/rabbitmq"
	"daisychain/internal/brokers/redis"
	"daisychain/internal/catalog"
	"daisychain/internal/channels"
	"daisychain/internal/channels/clock"
	"daisychain/internal/channels/dropbox"
	"daisychain/internal/channels/facebook"
	"daisychain/internal/channels/github"
	"daisychain/internal/channels/gmail"
	"daisychain/internal/channels/hue"
	"daisychain/internal/channels/instagram"
	"daisychain/internal/channels/mail"
	"daisychain/internal/channels/rss"
	"daisychain/internal/channels/twitter"
	"daisychain/internal/common/logging"
	"daisychain/internal/config"
	"daisychain/internal/core"
	"daisychain/internal/crypto"
	"daisychain/internal/handlers"
	"daisychain/internal/scheduler"
	"daisychain/internal/server"
	"daisychain/internal/storage"
	"daisychain/internal/storage/postgres"
	"daisychain/internal/storage/sqlite"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Missing .env is fine, environment variables may come from elsewhere.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.NewZapLogger(logging.Config{Level: logging.ParseLevel(cfg.LogLevel)})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	logging.SetGlobalLogger(logger)
	defer logging.MustSync()

	store, err := openStorage(cfg)
	if err != nil {
		logger.Error("failed to open storage", err, logging.Field{Key: "type", Value: cfg.DatabaseType})
		os.Exit(1)
	}
	defer store.Close()

	if err := catalog.Seed(store); err != nil {
		logger.Error("failed to seed channel catalog", err)
		os.Exit(1)
	}

	broker, err := openBroker(cfg)
	if err != nil {
		logger.Error("failed to connect broker", err, logging.Field{Key: "type", Value: cfg.BrokerType})
		os.Exit(1)
	}
	defer broker.Close()

	client := &http.Client{Timeout: 30 * time.Second}
	instagramChannel := instagram.NewChannel(store, client)
	facebookChannel := facebook.NewChannel(store, client)
	dropboxChannel := dropbox.NewChannel(store, client)

	registry, err := buildRegistry(store, client, instagramChannel, facebookChannel, dropboxChannel, cfg)
	if err != nil {
		logger.Error("failed to build channel registry", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := core.NewDispatcher(broker, cfg.TriggerQueue)

	worker := core.NewWorker(store, registry)
	if err := worker.Start(ctx, broker, cfg.TriggerQueue, cfg.WorkerCount); err != nil {
		logger.Error("failed to start trigger workers", err)
		os.Exit(1)
	}

	sched := scheduler.NewScheduler(store, dispatcher)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", err)
		os.Exit(1)
	}

	h := handlers.New(store, dispatcher, instagramChannel, facebookChannel, dropboxChannel, cfg, broker)
	srv := server.New(handlers.NewRouter(h), cfg.Port, cfg.TLSCertFile, cfg.TLSKeyFile)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", err)
		os.Exit(1)
	}

	logger.Info("daisychain started",
		logging.Field{Key: "port", Value: cfg.Port},
		logging.Field{Key: "storage", Value: cfg.DatabaseType},
		logging.Field{Key: "broker", Value: cfg.BrokerType},
		logging.Field{Key: "workers", Value: cfg.WorkerCount})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	logger.Info("shutting down", logging.Field{Key: "signal", Value: sig.String()})

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", err)
	}

	logger.Info("daisychain stopped")
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	var storeCfg storage.Config
	storageType := cfg.DatabaseType
	switch storageType {
	case "postgres", "postgresql":
		storageType = "postgres"
		port, _ := strconv.Atoi(cfg.PostgresPort)
		storeCfg = &postgres.Config{
			Host:     cfg.PostgresHost,
			Port:     port,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSLMode,
		}
	default:
		storeCfg = &sqlite.Config{DatabasePath: cfg.DatabasePath}
	}

	store, err := storage.Create(storageType, storeCfg)
	if err != nil {
		return nil, err
	}

	if cfg.TokenEncryptionKey == "" {
		logging.Warn("TOKEN_ENCRYPTION_KEY is not set, provider tokens are stored in plaintext")
		return store, nil
	}

	encryptor, err := crypto.NewTokenEncryptor(cfg.TokenEncryptionKey)
	if err != nil {
		store.Close()
		return nil, err
	}
	return storage.NewEncryptedStorage(store, encryptor), nil
}

func openBroker(cfg *config.Config) (brokers.Broker, error) {
	var brokerCfg brokers.Config
	switch cfg.BrokerType {
	case "rabbitmq":
		brokerCfg = &rabbitmq.Config{URL: cfg.RabbitMQURL}
	case "redis":
		db, _ := strconv.Atoi(cfg.RedisDB)
		brokerCfg = &redis.Config{
			Address:       cfg.RedisAddress,
			Password:      cfg.RedisPassword,
			DB:            db,
			ConsumerGroup: "daisychain-workers",
		}
	default:
		brokerCfg = &memory.Config{BufferSize: 256}
	}
	return brokers.Create(cfg.BrokerType, brokerCfg)
}

func buildRegistry(store storage.Storage, client *http.Client,
	instagramChannel *instagram.Channel, facebookChannel *facebook.Channel,
	dropboxChannel *dropbox.Channel, cfg *config.Config) (*channels.Registry, error) {
	gmailOAuth := &oauth2.Config{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailSendScope},
	}

	registry := channels.NewRegistry()
	for _, channel := range []channels.Channel{
		clock.NewChannel(store),
		rss.NewChannel(),
		github.NewChannel(store, client, cfg.PublicBaseURL+"/webhooks/github"),
		instagramChannel,
		facebookChannel,
		twitter.NewChannel(store, client),
		dropboxChannel,
		hue.NewChannel(store, client),
		mail.NewChannel(store, cfg.SMTP),
		gmail.NewChannel(store, gmailOAuth),
	} {
		if err := registry.Register(channel); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
