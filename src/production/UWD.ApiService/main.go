package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/controllers"
	"gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/middleware"
	container "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Container"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting Telemetry API Service")

	// Seed admin user and optional demo fleet
	if err := ctr.Seed(); err != nil {
		logger.FatalWithError(err, "Failed to seed users")
	}

	config := ctr.GetConfig()

	// Create session middleware
	sessionMiddleware := middleware.NewSessionMiddleware(ctr.GetSessions(), ctr.GetAccessStore(), ctr.GetTokenService())

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Configure CORS from config
	corsConfig := cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// Create controllers and register routes
	authController := controllers.NewAuthController(ctr.GetSessions(), logger)
	sensorController := controllers.NewSensorController(ctr.GetRegistry(), ctr.GetAccessStore(), ctr.GetProcessor(), logger)
	adminController := controllers.NewAdminController(ctr.GetSessions(), ctr.GetAccessStore(), logger)
	ingestController := controllers.NewIngestController(ctr.GetGateway(), logger)
	streamController := controllers.NewStreamController(ctr.GetHub(), ctr.GetSessions(), ctr.GetProcessor(), logger)
	healthController := controllers.NewHealthController(ctr.GetRegistry(), ctr.GetHub(), ctr.GetSessions())

	authController.RegisterRoutes(router, sessionMiddleware)
	sensorController.RegisterRoutes(router, sessionMiddleware)
	adminController.RegisterRoutes(router, sessionMiddleware)
	ingestController.RegisterRoutes(router, sessionMiddleware)
	streamController.RegisterRoutes(router)
	healthController.RegisterRoutes(router)

	port := config.Server.Port

	// Create HTTP server with timeouts. ReadTimeout is deliberately not set
	// so long-lived stream connections are not cut off mid-read.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: config.Server.ReadTimeout,
		IdleTimeout:       config.Server.IdleTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("Telemetry API service running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
}
