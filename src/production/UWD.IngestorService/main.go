package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	token "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/implementation/token"
	container "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Container"
	"gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.IngestorService/client"
	mqtingestor "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.IngestorService/ingestor"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewIngestorContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting MQTT Ingestor Service")

	config := ctr.GetConfig()

	// Create API client with internal token signing
	tokens := token.NewService(api_models.TokenConfig{
		SecretKey: config.InternalAPISecret,
		Issuer:    "uwdf-telemetry",
	})
	apiClient := client.NewAPIClient(config.ApiServiceURL, tokens, config.MQTT.ClientID)

	// Create and start MQTT ingestor
	ing := mqtingestor.New(config, apiClient, logger)
	if err := ing.Start(context.Background()); err != nil {
		logger.FatalWithError(err, "Failed to start MQTT ingestor")
	}
	defer ing.Stop()

	// Start health check server
	go startHealthServer(config.Server.Port, ing, apiClient)

	logger.Info("MQTT ingestor running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")
}

// startHealthServer starts a simple HTTP server for health checks
func startHealthServer(port string, ing *mqtingestor.Ingestor, apiClient *client.APIClient) {
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		body := `{"status":"ok","mqtt":true,"api":true}`
		if !ing.IsConnected() || !apiClient.Healthy(ctx) {
			status = http.StatusServiceUnavailable
			body = fmt.Sprintf(`{"status":"degraded","mqtt":%t,"api":%t}`,
				ing.IsConnected(), apiClient.Healthy(ctx))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintln(w, body)
	})

	http.ListenAndServe(":"+port, nil)
}
