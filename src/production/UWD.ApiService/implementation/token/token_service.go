package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
)

// Service signs and validates internal service tokens. The ingest endpoints
// only accept requests from holders of the shared secret (the MQTT ingestor,
// trusted sensor bridges); user sessions never pass through here.
type Service struct {
	config api_models.TokenConfig
}

// NewService creates a new internal token service
func NewService(config api_models.TokenConfig) *Service {
	if config.TokenDuration == 0 {
		config.TokenDuration = 5 * time.Minute
	}
	return &Service{config: config}
}

// Generate creates a short-lived signed token identifying a service
func (s *Service) Generate(service string) (string, error) {
	now := time.Now()
	claims := api_models.IngestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
		Service: service,
		TokenID: uuid.New().String(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(s.config.SecretKey))
}

// Validate checks an internal token and returns its claims
func (s *Service) Validate(tokenString string) (*api_models.IngestClaims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &api_models.IngestClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := tok.Claims.(*api_models.IngestClaims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
