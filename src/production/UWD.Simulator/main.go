package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Config"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
)

// simSensor describes one simulated sensor's output curve.
type simSensor struct {
	sensorID string
	kind     string
	base     float64
	swing    float64
}

var fleet = []simSensor{
	{sensorID: "HR001", kind: uwdmodels.KindHeartRate, base: 72, swing: 18},
	{sensorID: "TEMP001", kind: uwdmodels.KindTemperature, base: 36.6, swing: 0.8},
	{sensorID: "MOT001", kind: uwdmodels.KindMotion, base: 0.3, swing: 0.3},
}

func main() {
	cfg, err := config.LoadSimulatorConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	log := logger.NewLogger(&cfg.Logging).WithComponent("simulator")

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.BrokerURL()).
		SetClientID(cfg.MQTT.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	if cfg.MQTT.BrokerUser != "" {
		opts.SetUsername(cfg.MQTT.BrokerUser)
		opts.SetPassword(cfg.MQTT.BrokerPass)
	}

	mqttClient := mqtt.NewClient(opts)
	if tk := mqttClient.Connect(); tk.Wait() && tk.Error() != nil {
		log.FatalWithError(tk.Error(), "Failed to connect to MQTT broker")
	}
	defer mqttClient.Disconnect(500)

	log.Info("Simulator publishing every " + cfg.Interval.String())

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	phase := 0.0
	for {
		select {
		case <-ticker.C:
			phase += 0.1
			for _, s := range fleet {
				value := s.base + s.swing*math.Sin(phase) + rand.Float64()*s.swing*0.1
				payload, _ := json.Marshal(map[string]interface{}{
					"value":     value,
					"timestamp": time.Now().UnixMilli(),
				})
				topic := fmt.Sprintf("sensors/%s/%s", s.kind, s.sensorID)
				if tk := mqttClient.Publish(topic, 1, false, payload); tk.Wait() && tk.Error() != nil {
					log.ErrorWithError(tk.Error(), "Failed to publish reading")
				}
			}
		case <-sig:
			log.Info("Simulator stopping")
			return
		}
	}
}
