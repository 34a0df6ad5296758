package mqtingestor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Config"
	"gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.IngestorService/client"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
)

// keyedReading pairs a sensor kind with its raw payload.
type keyedReading struct {
	Kind    string
	Reading api_models.RawReading
}

// mqttPayload is what sensor sources publish: the value, and optionally the
// source's own timestamp.
type mqttPayload struct {
	Value     *float64 `json:"value"`
	Timestamp *int64   `json:"timestamp"`
}

// Ingestor subscribes to the sensor topic tree and forwards readings to the
// telemetry API in batches. Topic format: sensors/<kind>/<sensorId>.
type Ingestor struct {
	cfg        *config.IngestorConfig
	apiClient  *client.APIClient
	mqttClient mqtt.Client
	msgCh      chan keyedReading
	wg         sync.WaitGroup
	logger     *logger.Logger
}

// New creates an MQTT ingestor.
func New(cfg *config.IngestorConfig, apiClient *client.APIClient, log *logger.Logger) *Ingestor {
	return &Ingestor{
		cfg:       cfg,
		apiClient: apiClient,
		msgCh:     make(chan keyedReading, 4096),
		logger:    log.WithComponent("mqtt-ingestor"),
	}
}

// Start connects to the broker, subscribes and launches the batch writer.
func (i *Ingestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(i.cfg.MQTT.BrokerURL()).
		SetClientID(i.cfg.MQTT.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(i.cfg.MQTT.KeepAlive).
		SetPingTimeout(i.cfg.MQTT.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(false)

	if i.cfg.MQTT.BrokerUser != "" {
		opts.SetUsername(i.cfg.MQTT.BrokerUser)
		opts.SetPassword(i.cfg.MQTT.BrokerPass)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.logger.Logger.Error().Err(err).Msg("MQTT connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		topic := i.cfg.MQTT.Topic
		if i.cfg.MQTT.SharedGroup != "" {
			topic = fmt.Sprintf("$share/%s/%s", i.cfg.MQTT.SharedGroup, i.cfg.MQTT.Topic)
		}
		i.logger.Logger.Info().Str("topic", topic).Msg("MQTT connected, subscribing to topic")
		if token := c.Subscribe(topic, 1, i.onMessage); token.Wait() && token.Error() != nil {
			i.logger.Logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
		}
	}

	i.mqttClient = mqtt.NewClient(opts)
	if tk := i.mqttClient.Connect(); tk.Wait() && tk.Error() != nil {
		return tk.Error()
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.batchWriter(ctx)
	}()

	return nil
}

// Stop disconnects from the broker and drains the batch writer.
func (i *Ingestor) Stop() {
	if i.mqttClient != nil && i.mqttClient.IsConnected() {
		i.mqttClient.Disconnect(500)
	}
	close(i.msgCh)
	i.wg.Wait()
}

// IsConnected reports broker connectivity for health checks.
func (i *Ingestor) IsConnected() bool {
	return i.mqttClient != nil && i.mqttClient.IsConnected()
}

func (i *Ingestor) onMessage(_ mqtt.Client, m mqtt.Message) {
	kind, sensorID, ok := splitTopic(m.Topic())
	if !ok {
		i.logger.Logger.Warn().Str("topic", m.Topic()).Str("expected", "sensors/<kind>/<sensorId>").Msg("Invalid topic format")
		return
	}

	var payload mqttPayload
	if err := json.Unmarshal(m.Payload(), &payload); err != nil {
		i.logger.Logger.Warn().Err(err).Str("topic", m.Topic()).Msg("Invalid payload, dropping message")
		return
	}

	// Shape validation belongs to the gateway; the ingestor only needs a
	// decodable payload.
	select {
	case i.msgCh <- keyedReading{
		Kind: kind,
		Reading: api_models.RawReading{
			SensorID:  sensorID,
			Value:     payload.Value,
			Timestamp: payload.Timestamp,
		},
	}:
	default:
		i.logger.Logger.Warn().Str("topic", m.Topic()).Msg("Ingest queue full, dropping message")
	}
}

// splitTopic parses sensors/<kind>/<sensorId>.
func splitTopic(topic string) (kind, sensorID string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "sensors" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// batchWriter groups queued readings by size and time window and forwards
// each batch to the API. Within a window, a newer reading for the same kind
// replaces the older one; the registry would drop the stale write anyway.
func (i *Ingestor) batchWriter(ctx context.Context) {
	batch := make(map[string]api_models.RawReading)
	timer := time.NewTicker(i.cfg.BatchWindow)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		i.logger.Logger.Debug().Int("batch_size", len(batch)).Msg("Flushing batch to API service")

		flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		result, err := i.apiClient.PostReadings(flushCtx, batch)
		cancel()
		if err != nil {
			i.logger.Logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to forward batch, dropping")
		} else if len(result.Rejected) > 0 {
			i.logger.Logger.Warn().Interface("rejected", result.Rejected).Msg("API rejected some readings")
		}
		batch = make(map[string]api_models.RawReading)
	}

	for {
		select {
		case msg, open := <-i.msgCh:
			if !open {
				flush()
				return
			}
			batch[msg.Kind] = msg.Reading
			if len(batch) >= i.cfg.BatchSize {
				flush()
			}
		case <-timer.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}
