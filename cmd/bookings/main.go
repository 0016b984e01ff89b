package main

import (
	"context"
	_ "time/tzdata"

	"defensebook/internal/bookings/events"
	"defensebook/internal/bookings/handler"
	"defensebook/internal/bookings/lifecycle"
	"defensebook/internal/bookings/repository"
	"defensebook/internal/bookings/service"
	"defensebook/internal/bookings/slots"
	"defensebook/internal/bookings/validator"
	"defensebook/internal/directory"
	"defensebook/pkg/app"
	"defensebook/pkg/auth"
	"defensebook/pkg/client"
	"defensebook/pkg/config"
	"defensebook/pkg/kafka"
	kafka_config "defensebook/pkg/kafka/config"
	kafka_middleware "defensebook/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	bookingService := initServices(cfg, serverApp)
	health := handler.NewHealthHandler(handler.PingerFunc(func(ctx context.Context) error {
		return cfg.Client.Mongo.Ping(ctx, nil)
	}), cfg.Log)

	serverApp.SetApp(
		health,
		handler.NewBookingHandler(bookingService, cfg.Location, cfg.Log),
		auth.NewTokenVerifier(cfg.JWTSecret),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) service.BookingService {
	calculator := slots.NewCalculator(cfg.OpenHour, cfg.CloseHour, cfg.Location, cfg.Horizon)
	bookingValidator := validator.NewBookingValidator(calculator, cfg.Log)
	bookingLifecycle := lifecycle.New(lifecycle.NewRoleAuthorizer(cfg.ApproverRoles))
	bookingRepo := repository.NewMongoBookingRepository(cfg)

	dir := directory.New(
		client.NewHttpClient(cfg.DirectoryURL, cfg.DirectoryTimeout),
		directory.NewRedisCache(cfg.Client.Redis),
		cfg.DirectoryCacheTTL,
		cfg.Log,
	)

	bookingService := service.NewBookingService(
		bookingRepo,
		bookingValidator,
		calculator,
		bookingLifecycle,
		cfg.Log,
		service.WithPublisher(initPublisher(cfg, serverApp)),
		service.WithDirectory(dir),
		service.WithPublishTimeout(cfg.EventPublishTimeout),
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return events.NopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventTopic, kafkaCfg.DLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	serverApp.OnShutdown(producer.Close)

	return events.NewKafkaPublisher(producer, ServiceName)
}
