package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/smartedu-app/smartedu-api/internal/config"
	"github.com/smartedu-app/smartedu-api/internal/database"
	"github.com/smartedu-app/smartedu-api/internal/gate"
	"github.com/smartedu-app/smartedu-api/internal/handler"
	"github.com/smartedu-app/smartedu-api/internal/middleware"
	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/repository"
	"github.com/smartedu-app/smartedu-api/internal/router"
	"github.com/smartedu-app/smartedu-api/internal/service"
	"github.com/smartedu-app/smartedu-api/pkg/ai"
	"github.com/smartedu-app/smartedu-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Stage{},
		&models.Level{},
		&models.Subject{},
		&models.AcademicYear{},
		&models.Student{},
		&models.StudentPromotion{},
		&models.Lesson{},
		&models.Exercise{},
		&models.ExerciseSubmission{},
		&models.Message{},
		&models.Notification{},
		&models.ActivityLog{},
		&models.BackupRecord{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn := connectNATS(cfg, logger)
	if natsConn != nil {
		defer natsConn.Drain()
	}

	uploader := buildUploader(cfg, logger)
	reviewer := buildReviewer(cfg, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	academicRepo := repository.NewAcademicRepository(db)
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	backupRepo := repository.NewBackupRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, "smartedu", natsConn, validate, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	academicService := service.NewAcademicService(academicRepo, validate, logger)
	lessonService := service.NewLessonService(lessonRepo, academicRepo, uploader, validate, logger)
	gradingService := service.NewGradingService(submissionRepo, lessonRepo, reviewer, validate, logger)
	messageService := service.NewMessageService(messageRepo, userRepo, redisClient, "smartedu", natsConn, validate, logger)
	backupService := service.NewBackupService(backupRepo, nil, uploader, activityService, logger)

	promotionQueryService := service.NewPromotionQueryService(promotionRepo, academicRepo, redisClient, cfg.StatsCacheTTL, logger)
	promotionResponseService := service.NewPromotionResponseService(promotionRepo, notificationService, activityService, redisClient, service.PromotionResponsePolicy{
		CompleteFinalLevel: cfg.CompleteFinalLevel,
	}, validate, logger)
	promotionRolloverService := service.NewPromotionRolloverService(promotionRepo, studentRepo, userRepo, academicRepo, notificationService, activityService, redisClient, logger)

	fanoutCtx, stopFanout := context.WithCancel(context.Background())
	defer stopFanout()
	notificationService.Start(fanoutCtx)
	messageService.Start(fanoutCtx)

	promotionGate := gate.New(promotionQueryService, logger)

	promotionHandler := handler.NewPromotionHandler(promotionQueryService, promotionResponseService, promotionGate, logger)
	academicHandler := handler.NewAcademicHandler(academicService, promotionRolloverService, logger)
	lessonHandler := handler.NewLessonHandler(lessonService, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, logger)
	messageHandler := handler.NewMessageHandler(messageService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)
	backupHandler := handler.NewBackupHandler(backupService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		PromotionHandler:    promotionHandler,
		AcademicHandler:     academicHandler,
		LessonHandler:       lessonHandler,
		GradingHandler:      gradingHandler,
		MessageHandler:      messageHandler,
		NotificationHandler: notificationHandler,
		BackupHandler:       backupHandler,
		ActivityHandler:     activityHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		PromotionGate:       promotionGate,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func connectNATS(cfg config.Config, logger zerolog.Logger) *nats.Conn {
	if cfg.NATSURL == "" {
		return nil
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, cross-node notification fan-out disabled")
		return nil
	}

	return conn
}

func buildUploader(cfg config.Config, logger zerolog.Logger) storage.Uploader {
	if cfg.CloudName == "" {
		logger.Warn().Msg("cloudinary not configured, resource uploads disabled")
		return nil
	}

	uploader, err := storage.NewCloudinaryUploader(storage.Config{
		CloudName: cfg.CloudName,
		APIKey:    cfg.CloudAPIKey,
		APISecret: cfg.CloudSecret,
		Folder:    cfg.UploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	return uploader
}

func buildReviewer(cfg config.Config, logger zerolog.Logger) ai.Reviewer {
	switch cfg.AIProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil
		}

		reviewer, err := ai.NewOpenAIReviewer(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Logger: logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("openai reviewer unavailable, submissions will not be pre-annotated")
			return nil
		}

		return reviewer
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil
		}

		reviewer, err := ai.NewAnthropicReviewer(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
		if err != nil {
			logger.Warn().Err(err).Msg("anthropic reviewer unavailable, submissions will not be pre-annotated")
			return nil
		}

		return reviewer
	default:
		return nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
