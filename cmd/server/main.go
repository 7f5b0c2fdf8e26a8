package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulsefit/workout-app/internal/api"
	"pulsefit/workout-app/internal/config"
	"pulsefit/workout-app/internal/generator"
	"pulsefit/workout-app/internal/repository/mongo"
	"pulsefit/workout-app/internal/service"
	"pulsefit/workout-app/internal/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.Info("Starting workout app server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.WithError(err).Fatal("could not load config")
	}
	log.Info("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.WithError(err).Fatal("could not connect to MongoDB")
	}
	defer func() {
		log.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.WithError(err).Error("failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Info("Database connection established.")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureSessionIndexes(ctx, appDB.Collection("sessions"))
		mongo.EnsureWorkoutIndexes(ctx, appDB.Collection("workouts"))
		mongo.EnsureExerciseIndexes(ctx, appDB.Collection("exercises"))
		mongo.EnsureActionLogIndexes(ctx, appDB.Collection("action_log"))
		log.Info("Index creation process completed.")
	}()

	// --- Summary Archive (optional) ---
	var archive storage.SummaryArchive
	if cfg.S3.Enabled {
		archive, err = storage.NewS3Archive(cfg.S3)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize S3 summary archive")
		}
		log.Info("Summary archive enabled.")
	} else {
		log.Info("Summary archive disabled.")
	}

	// --- Instance Generator ---
	var gen generator.Generator
	if cfg.Generator.URL != "" {
		gen = generator.NewHTTPGenerator(cfg.Generator.URL, cfg.Generator.Timeout)
		log.WithField("url", cfg.Generator.URL).Info("Using HTTP instance generator.")
	} else {
		gen = generator.NewStaticGenerator()
		log.Info("No generator URL configured, using built-in static generator.")
	}

	// --- Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	workoutRepo := mongo.NewMongoWorkoutRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	actionLogRepo := mongo.NewMongoActionLogRepository(appDB)

	// --- Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	sessionService := service.NewSessionService(sessionRepo, workoutRepo, exerciseRepo, gen, archive)
	commandService := service.NewCommandService(exerciseRepo, actionLogRepo, sessionRepo)

	// --- HTTP ---
	router := gin.Default()
	api.SetupRoutes(router, cfg.JWT.Secret, authService, sessionService, commandService)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("address", cfg.Server.Address).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("ListenAndServe error")
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	log.Info("Server exiting.")
}
