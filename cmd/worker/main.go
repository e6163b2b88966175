package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cadencehq/outreach-backend/internal/channel"
	"github.com/cadencehq/outreach-backend/internal/config"
	"github.com/cadencehq/outreach-backend/internal/db"
	"github.com/cadencehq/outreach-backend/internal/logging"
	"github.com/cadencehq/outreach-backend/internal/queue"
	"github.com/cadencehq/outreach-backend/internal/repository"
	"github.com/cadencehq/outreach-backend/internal/service"
	"github.com/cadencehq/outreach-backend/internal/suppression"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logging.Setup(cfg.LogLevel)
	logger := logging.Component("worker")

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()

	stepRepo := &repository.SequenceStepRepository{DB: conn}
	leadRepo := &repository.LeadRepository{DB: conn}
	progressRepo := &repository.LeadProgressRepository{DB: conn}
	executionRepo := &repository.ExecutionRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}

	// Dead letters go to a durable broker queue; fall back to log-only when
	// the broker is unreachable so the worker still runs locally.
	var sink queue.FailureSink
	amqpSink, err := queue.NewAMQPFailureSink(cfg.AMQPURL, cfg.DeadLetterQueue)
	if err != nil {
		logger.Warn().Err(err).Msg("broker unavailable, dead letters will only be logged")
		sink = &queue.LogFailureSink{Logger: logging.Component("dead-letter")}
	} else {
		defer amqpSink.Close()
		sink = amqpSink
	}

	dispatcher := channel.NewDispatcher()
	for _, ch := range []channel.Channel{channel.Email, channel.SMS, channel.Voice} {
		dispatcher.Register(ch, &channel.LogSender{Channel: ch, Logger: logging.Component("sender")})
	}

	executor := service.NewSequenceExecutor(
		stepRepo, leadRepo, progressRepo, executionRepo,
		&suppression.OptOutGate{DB: conn},
		dispatcher,
	)

	dispatchQueue := queue.New(queue.Config{
		Name:          "sequence_dispatch",
		Workers:       cfg.WorkerCount,
		MaxAttempts:   cfg.MaxAttempts,
		RetryBackoff:  cfg.RetryBackoff,
		LeaseDuration: cfg.LeaseDuration,
	}, executor.HandleJob, sink)

	finder := service.NewDueWorkFinder(progressRepo, dispatchQueue, cfg.BatchSize)
	activator := service.NewCampaignActivator(campaignRepo)

	scheduler := service.NewScheduler(cfg.TickInterval)
	scheduler.Register("activator", activator)
	scheduler.Register("finder", finder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatchQueue.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("queue start failed")
	}
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start failed")
	}

	logger.Info().Msg("worker running")
	<-ctx.Done()

	logger.Info().Msg("shutting down")
	if err := scheduler.Stop(); err != nil {
		logger.Error().Err(err).Msg("scheduler stop failed")
	}
	if err := dispatchQueue.Stop(); err != nil {
		logger.Error().Err(err).Msg("queue stop failed")
	}
}
