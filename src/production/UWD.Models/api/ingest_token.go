package api_models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig holds configuration for internal service tokens.
type TokenConfig struct {
	SecretKey     string
	Issuer        string
	TokenDuration time.Duration
}

// IngestClaims represents the JWT claims carried by internal ingest tokens.
// Only trusted services (the MQTT ingestor, test harnesses) hold the shared
// secret needed to mint one.
type IngestClaims struct {
	jwt.RegisteredClaims
	Service string `json:"service"`
	TokenID string `json:"token_id"`
}
