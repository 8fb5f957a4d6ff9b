package main

import (
	"context"
	"time"

	auctionhandler "bidhouse/internal/auctions/handler"
	auctionrepo "bidhouse/internal/auctions/repository"
	auctionservice "bidhouse/internal/auctions/service"
	bidhandler "bidhouse/internal/bids/handler"
	bidrepo "bidhouse/internal/bids/repository"
	bidservice "bidhouse/internal/bids/service"
	bidvalidator "bidhouse/internal/bids/validator"
	notificationrepo "bidhouse/internal/notifications/repository"
	notificationservice "bidhouse/internal/notifications/service"
	"bidhouse/pkg/app"
	"bidhouse/pkg/client"
	"bidhouse/pkg/config"
	"bidhouse/pkg/contracts"
	"bidhouse/pkg/kafka"
	kafka_config "bidhouse/pkg/kafka/config"
	kafka_middleware "bidhouse/pkg/kafka/middleware"
)

const ServiceName = "auctions"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	cfg.Log.Info("Starting Auctions service")
	cfg.SetMongo()

	gate := bidrepo.NewActivityGate(cfg)
	guard := bidrepo.NewBidGuard(cfg)
	leaderboard := bidrepo.NewLeaderboard(cfg)
	bidRepo := bidrepo.NewMongoBidRepository(cfg)
	auctionRepo := auctionrepo.NewMongoAuctionRepository(cfg)
	reservationRepo := notificationrepo.NewMongoReservationRepository(cfg)

	ensureIndexes(cfg, gate, leaderboard)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BidTopic, cfg.BidDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()

	validator := bidvalidator.NewBidValidator(cfg.MaxBidAmount, cfg.Log)
	intakeService := bidservice.NewIntakeService(gate, guard, leaderboard, bidRepo, producer, validator, cfg)
	winnerService := auctionservice.NewWinnerService(bidRepo, auctionRepo, reservationRepo, cfg)
	scheduler := auctionservice.NewScheduler(auctionRepo, gate, guard, leaderboard, bidRepo, winnerService, reservationRepo, cfg)

	notifier := notificationservice.NewNotifier(
		reservationRepo,
		client.NewNotifierClient(cfg.NotifierBaseURL),
		client.NewUserDirectoryClient(cfg.UserDirectoryBaseURL),
		cfg,
	)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.BidTopic, cfg.BidGroupID, cfg.BidDLQTopic, intakeService.HandleMessage)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	defer consumer.Close()

	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware())
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware())
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		bidhandler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		contracts.Compose(
			bidhandler.NewBidHandler(intakeService, cfg.Log),
			auctionhandler.NewWinnerHandler(winnerService, cfg.Log),
		),
	)

	serverApp.AddWorker("bid-consumer", consumer.Start)
	serverApp.AddWorker("activation", scheduler.RunActivation)
	serverApp.AddWorker("closeout", scheduler.RunCloseout)
	serverApp.AddWorker("offer-timeout", scheduler.RunOfferTimeout)
	serverApp.AddWorker("notifier", notifier.Run)

	serverApp.Run()
}

func ensureIndexes(cfg *config.Config, gate bidrepo.ActivityGate, leaderboard bidrepo.Leaderboard) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := gate.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to create gate indexes", "error", err)
	}
	if err := leaderboard.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to create leaderboard indexes", "error", err)
	}

	cfg.Log.Info("Indexes ensured", "database", cfg.MongoDatabaseName)
}
