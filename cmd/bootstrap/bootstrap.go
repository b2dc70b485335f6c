package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minervamed/clinic-scheduler/config"
	deliveryHttp "github.com/minervamed/clinic-scheduler/internal/delivery/http"
	"github.com/minervamed/clinic-scheduler/internal/delivery/http/handler"
	"github.com/minervamed/clinic-scheduler/internal/delivery/http/middleware"
	"github.com/minervamed/clinic-scheduler/internal/domain/slot"
	"github.com/minervamed/clinic-scheduler/internal/infrastructure/cache"
	"github.com/minervamed/clinic-scheduler/internal/infrastructure/chat"
	"github.com/minervamed/clinic-scheduler/internal/infrastructure/database"
	"github.com/minervamed/clinic-scheduler/internal/repository"
	"github.com/minervamed/clinic-scheduler/internal/service"
	"github.com/minervamed/clinic-scheduler/internal/usecase"
	"github.com/minervamed/clinic-scheduler/pkg/cipher"
	"github.com/minervamed/clinic-scheduler/pkg/jwt"
	"github.com/minervamed/clinic-scheduler/pkg/metrics"
	"github.com/minervamed/clinic-scheduler/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
}

// LoadConfig reads configuration and sets up the logger from it. The
// migrate command stops here; serve continues with New.
func LoadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := setupLogger(cfg.App)
	log.Info("Configuration loaded successfully")
	return cfg, log, nil
}

// New creates a new App instance with all dependencies initialized
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Log: log}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	log.Info("Redis connected successfully")

	server, err := initializeServer(cfg, log, db, redisClient)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Server = server

	return app, nil
}

func setupLogger(cfg config.AppConfig) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// initializeServer creates and configures the HTTP server
func initializeServer(cfg *config.Config, log *logrus.Logger, db *gorm.DB, redisClient *redis.Client) (*http.Server, error) {
	loc, err := time.LoadLocation(cfg.DB.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_TIMEZONE %q: %w", cfg.DB.TimeZone, err)
	}

	grid, err := slot.NewGrid(cfg.Schedule.OpenTime, cfg.Schedule.CloseTime, cfg.Schedule.StepMinutes)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}
	calc, err := slot.NewCalculator(grid, cfg.Schedule.Durations)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule durations: %w", err)
	}

	fieldCipher, err := cipher.NewFieldCipher(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}

	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()
	collector := metrics.NewCollector(cfg.Metrics.Namespace)

	// Repositories
	txManager := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	officeRepo := repository.NewOfficeRepository()
	doctorProfileRepo := repository.NewDoctorProfileRepository(db)
	patientProfileRepo := repository.NewPatientProfileRepository()
	appointmentRepo := repository.NewAppointmentRepository(db, fieldCipher, cfg.Schedule.IDRetries)
	serviceRepo := repository.NewDoctorServiceRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)
	tokenRepo := repository.NewTokenRepository(redisClient)

	// Services
	auditService := service.NewAuditService(log, auditLogRepo, collector)
	locker := service.NewRedisBookingLocker(redisClient, cfg.Schedule.LockTTL)
	connector := chat.NewBreakerConnector(
		chat.NewRedisConnector(redisClient, cfg.Chat.SessionTTL, cfg.Chat.MessageTTL),
		chat.BreakerSettings{
			MaxFailures:      cfg.Chat.BreakerMaxFailures,
			OpenTimeout:      cfg.Chat.BreakerOpenTimeout,
			HalfOpenRequests: cfg.Chat.BreakerHalfOpenReqs,
		},
		log,
	)

	// Usecases
	authUsecase := usecase.NewAuthUsecase(log, txManager, userRepo, roleRepo, officeRepo,
		doctorProfileRepo, patientProfileRepo, tokenRepo, jwtService, connector, auditService)
	confirmationUsecase := usecase.NewConfirmationUsecase(log, appointmentRepo, connector, auditService, collector)
	appointmentUsecase := usecase.NewAppointmentUsecase(log, appointmentRepo, userRepo, calc, locker,
		confirmationUsecase, auditService, collector, usecase.AppointmentOptions{
			StrictDuration: cfg.Schedule.StrictDuration,
			Location:       loc,
		})
	scheduleUsecase := usecase.NewScheduleUsecase(log, appointmentRepo, calc, cfg.Schedule.Durations, loc)
	doctorServiceUsecase := usecase.NewDoctorServiceUsecase(log, txManager, serviceRepo, auditService)
	auditLogUsecase := usecase.NewAuditLogUsecase(log, auditLogRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	scheduleHandler := handler.NewScheduleHandler(scheduleUsecase)
	chatHandler := handler.NewChatHandler(confirmationUsecase, customValidator)
	doctorServiceHandler := handler.NewDoctorServiceHandler(doctorServiceUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, tokenRepo)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigins)
	observabilityMiddleware := middleware.NewObservabilityMiddleware(log, collector)

	router := deliveryHttp.NewRouter(authHandler, appointmentHandler, scheduleHandler, chatHandler,
		doctorServiceHandler, auditLogHandler, authMiddleware, corsMiddleware, observabilityMiddleware,
		collector.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM.
func (app *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		app.Log.WithFields(logrus.Fields{
			"port": app.Config.App.Port,
			"env":  app.Config.App.Env,
		}).Info("Server starting")
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		app.Close()
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	app.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()
	app.Log.Info("Server shutdown complete")
	return nil
}

// Close closes the database and redis connections.
func (app *App) Close() {
	if app.DB != nil {
		if sqlDB, err := app.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		_ = app.RedisClient.Close()
	}
}
