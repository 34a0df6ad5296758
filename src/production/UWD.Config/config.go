package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `json:"server"`
	MQTT    MQTTConfig    `json:"mqtt"`
	Auth    AuthConfig    `json:"auth"`
	Hub     HubConfig     `json:"hub"`
	Logging LoggingConfig `json:"logging"`
	CORS    CORSConfig    `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// MQTTConfig holds MQTT-related configuration
type MQTTConfig struct {
	BrokerHost  string        `json:"broker_host"`
	BrokerPort  int           `json:"broker_port"`
	BrokerUser  string        `json:"broker_user"`
	BrokerPass  string        `json:"broker_pass"`
	Topic       string        `json:"topic"`
	ClientID    string        `json:"client_id"`
	SharedGroup string        `json:"shared_group"`
	KeepAlive   time.Duration `json:"keep_alive"`
	PingTimeout time.Duration `json:"ping_timeout"`
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	SessionDuration   time.Duration `json:"session_duration"`
	InternalAPISecret string        `json:"-"`
	InternalIssuer    string        `json:"internal_issuer"`
	Admin             AdminConfig   `json:"admin"`
}

// AdminConfig holds the seeded administrator account
type AdminConfig struct {
	UserID string `json:"user_id"`
	Secret string `json:"-"`
}

// HubConfig holds broadcast hub tuning
type HubConfig struct {
	SubscriberQueueSize int `json:"subscriber_queue_size"`
	MaxSubscribers      int `json:"max_subscribers"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// IngestorConfig holds configuration for the MQTT Ingestor service
type IngestorConfig struct {
	Server            ServerConfig  `json:"server"`
	MQTT              MQTTConfig    `json:"mqtt"`
	Logging           LoggingConfig `json:"logging"`
	ApiServiceURL     string        `json:"api_service_url"`
	InternalAPISecret string        `json:"-"`
	BatchSize         int           `json:"batch_size"`
	BatchWindow       time.Duration `json:"batch_window"`
}

// SimulatorConfig holds configuration for the sensor simulator
type SimulatorConfig struct {
	MQTT     MQTTConfig    `json:"mqtt"`
	Logging  LoggingConfig `json:"logging"`
	Interval time.Duration `json:"interval"`
}

// Load loads configuration for the telemetry API service
func Load() (*Config, error) {
	// A missing .env file is fine: plain environment variables work too.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "9002"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		MQTT: mqttFromEnv("telemetry-api"),
		Auth: AuthConfig{
			SessionDuration:   getDuration("SESSION_DURATION", 12*time.Hour),
			InternalAPISecret: getRequiredEnv("INTERNAL_API_SECRET"),
			InternalIssuer:    getEnv("INTERNAL_TOKEN_ISSUER", "uwdf-telemetry"),
			Admin: AdminConfig{
				UserID: getEnv("ADMIN_USER_ID", "admin"),
				Secret: getEnv("ADMIN_SECRET", "adminsecret123"),
			},
		},
		Hub: HubConfig{
			SubscriberQueueSize: getInt("HUB_QUEUE_SIZE", 64),
			MaxSubscribers:      getInt("HUB_MAX_SUBSCRIBERS", 1024),
		},
		Logging: loggingFromEnv(),
		CORS: CORSConfig{
			AllowedOrigins:   getStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getInt("CORS_MAX_AGE", 43200),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadIngestorConfig loads configuration for the MQTT Ingestor service
func LoadIngestorConfig() (*IngestorConfig, error) {
	_ = godotenv.Load()

	cfg := &IngestorConfig{
		Server: ServerConfig{
			Port:         getEnv("INGESTOR_PORT", "9003"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		MQTT:              mqttFromEnv("mqtt-ingestor"),
		Logging:           loggingFromEnv(),
		ApiServiceURL:     getEnv("API_SERVICE_URL", "http://api-service:9002"),
		InternalAPISecret: getRequiredEnv("INTERNAL_API_SECRET"),
		BatchSize:         getInt("INGEST_BATCH_SIZE", 100),
		BatchWindow:       getDuration("INGEST_BATCH_WINDOW", 500*time.Millisecond),
	}

	if cfg.ApiServiceURL == "" {
		return nil, fmt.Errorf("API_SERVICE_URL is required")
	}
	return cfg, nil
}

// LoadSimulatorConfig loads configuration for the sensor simulator
func LoadSimulatorConfig() (*SimulatorConfig, error) {
	_ = godotenv.Load()

	return &SimulatorConfig{
		MQTT:     mqttFromEnv("sensor-simulator"),
		Logging:  loggingFromEnv(),
		Interval: getDuration("SIM_INTERVAL", 2*time.Second),
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.Admin.Secret == "adminsecret123" {
		log.Println("WARNING: Using default admin secret. Change ADMIN_SECRET in production!")
	}
	if c.Hub.SubscriberQueueSize < 1 {
		return fmt.Errorf("HUB_QUEUE_SIZE must be at least 1")
	}
	if c.Hub.MaxSubscribers < 1 {
		return fmt.Errorf("HUB_MAX_SUBSCRIBERS must be at least 1")
	}
	return nil
}

// BrokerURL returns the MQTT broker URL
func (c *MQTTConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.BrokerHost, c.BrokerPort)
}

func mqttFromEnv(defaultClientID string) MQTTConfig {
	return MQTTConfig{
		BrokerHost:  getEnv("BROKER_HOST", "localhost"),
		BrokerPort:  getInt("BROKER_PORT", 1883),
		BrokerUser:  getEnv("BROKER_USER", ""),
		BrokerPass:  getEnv("BROKER_PASS", ""),
		Topic:       getEnv("MQTT_TOPIC", "sensors/#"),
		ClientID:    getEnv("MQTT_CLIENT_ID", defaultClientID),
		SharedGroup: getEnv("MQTT_SHARED_GROUP", ""),
		KeepAlive:   getDuration("MQTT_KEEP_ALIVE", 30*time.Second),
		PingTimeout: getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
	}
}

func loggingFromEnv() LoggingConfig {
	return LoggingConfig{
		Level:        getEnv("LOG_LEVEL", "info"),
		Format:       getEnv("LOG_FORMAT", "text"),
		Output:       getEnv("LOG_OUTPUT", "stdout"),
		EnableCaller: getBool("LOG_ENABLE_CALLER", false),
	}
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("missing required environment variable: %s", key)
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return boolValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
