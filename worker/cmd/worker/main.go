package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"chatWorker/worker/cache"
	"chatWorker/worker/config"
	"chatWorker/worker/database"
	"chatWorker/worker/dispatcher"
	"chatWorker/worker/kafka"
	"chatWorker/worker/ledger"
	"chatWorker/worker/media"
	"chatWorker/worker/pool"
	"chatWorker/worker/provider"
	"chatWorker/worker/rabbitmq"
	"chatWorker/worker/repository"
	"chatWorker/worker/service"
	"chatWorker/worker/transcribe"
	"chatWorker/worker/translate"
)

// transport is the chat bridge: inbound events plus outbound replies.
type transport interface {
	service.Source
	dispatcher.Replier
	Close() error
}

// kafkaTransport pairs the consumer group with the replies producer.
type kafkaTransport struct {
	*kafka.Consumer
	*kafka.Producer
}

func (t kafkaTransport) Close() error {
	return errors.Join(t.Consumer.Close(), t.Producer.Close())
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Worker stopped with error", zap.Error(err))
	}
	logger.Info("Worker stopped")
}

func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker Service starting",
		zap.String("transport", cfg.Transport),
		zap.String("store", cfg.StoreDriver),
		zap.String("stt_backend", cfg.STTBackend),
		zap.String("translate_backend", cfg.TranslateBackend),
	)

	repo, err := repository.Open(ctx, cfg.Store())
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer repo.Close()

	var results ledger.ResultCache
	if cfg.RedisAddr != "" {
		client, err := database.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		results = cache.NewResultCache(client, cfg.CacheTTL)
		logger.Info("Result cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	taskLedger := ledger.NewLedger(repo, results, cfg.StaleAfter, logger)

	stt, err := provider.NewSpeechToText(ctx, cfg.Providers(), logger)
	if err != nil {
		return err
	}
	languages, err := provider.NewLanguageProvider(ctx, cfg.Providers(), logger)
	if err != nil {
		return err
	}

	pipeline := transcribe.NewPipeline(
		media.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, logger),
		stt,
		transcribe.Options{
			ChunkSeconds: float64(cfg.ChunkSeconds),
			Concurrency:  cfg.STTConcurrency,
			ScratchRoot:  cfg.ScratchDir,
		},
		logger,
	)
	orchestrator := translate.NewOrchestrator(languages, cfg.SourceLang, cfg.TargetLang, logger)

	bridge, err := openTransport(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := bridge.Close(); err != nil {
			logger.Error("Failed to close transport", zap.Error(err))
		}
	}()

	d := dispatcher.NewDispatcher(
		taskLedger,
		media.NewFetcher(cfg.ScratchDir, cfg.LocalMediaDir, cfg.FetchTimeout, logger),
		pipeline,
		orchestrator,
		bridge,
		dispatcher.Options{
			DefaultSTTLanguage: cfg.SourceLang,
			TaskTimeout:        cfg.TaskTimeout,
		},
		logger,
	)

	processor := service.NewProcessor(bridge, pool.NewWorkerPool(cfg.WorkerCount), d, logger)

	logger.Info("Worker is running", zap.Int("workers", cfg.WorkerCount))
	return processor.Run(ctx, cfg.DrainTimeout)
}

func openTransport(cfg *config.Config, logger *zap.Logger) (transport, error) {
	switch cfg.Transport {
	case config.TransportAMQP:
		return rabbitmq.NewTransport(cfg.AMQPURL, cfg.AMQPEventsQueue, cfg.AMQPRepliesQueue, cfg.AMQPPrefetch, logger)
	default:
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaEventsTopic, logger)
		if err != nil {
			return nil, err
		}
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaRepliesTopic)
		if err != nil {
			_ = consumer.Close()
			return nil, err
		}
		return kafkaTransport{Consumer: consumer, Producer: producer}, nil
	}
}
