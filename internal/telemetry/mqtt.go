// Package telemetry publishes game server milestones to an MQTT broker
// for external dashboards and fleet monitoring.
package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/hexhaven-project/hexhaven/internal/config"
	"github.com/hexhaven-project/hexhaven/internal/events"
	"github.com/hexhaven-project/hexhaven/internal/util"
)

// Topic suffixes under the configured topic root.
const (
	TopicStatus  = "server/status"
	TopicGames   = "games"
	TopicPlayers = "players"
	TopicResults = "results"
)

// MQTTHandler manages the MQTT connection and publishes telemetry
// events from the event bus.
type MQTTHandler struct {
	mu sync.Mutex

	cfg      *config.Config
	eventBus *events.EventBus
	client   mqtt.Client

	// metadata included in every message
	metadata map[string]interface{}
}

// NewMQTTHandler creates a new MQTT telemetry handler.
func NewMQTTHandler(cfg *config.Config, eventBus *events.EventBus) (*MQTTHandler, error) {
	mqttCfg := cfg.GetApplicationData().MQTT
	if !mqttCfg.Enabled {
		return nil, fmt.Errorf("MQTT is disabled")
	}

	sysInfo := util.GetSystemInfo()
	metadata := map[string]interface{}{
		"hostname":       sysInfo.Hostname,
		"server_name":    cfg.GetServerData().Name,
		"server_version": config.ServerVersionString,
	}

	handler := &MQTTHandler{
		cfg:      cfg,
		eventBus: eventBus,
		metadata: metadata,
	}

	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if mqttCfg.UseTLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, mqttCfg.BrokerURL, mqttCfg.Port))

	if mqttCfg.ClientID != "" {
		opts.SetClientID(mqttCfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("hexhaven-%s", sysInfo.Hostname))
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)

	if mqttCfg.UseTLS {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if mqttCfg.CAFile != "" {
			pem, err := os.ReadFile(mqttCfg.CAFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read MQTT CA file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates in MQTT CA file %s", mqttCfg.CAFile)
			}
			tlsConfig.RootCAs = pool
		}
		if mqttCfg.CertFile != "" && mqttCfg.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(mqttCfg.CertFile, mqttCfg.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load MQTT TLS certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	handler.client = mqtt.NewClient(opts)
	return handler, nil
}

// Start connects to the broker and subscribes to bus events; it blocks
// until the context is cancelled.
func (h *MQTTHandler) Start(ctx context.Context) error {
	mqttCfg := h.cfg.GetApplicationData().MQTT
	log.Info().
		Str("broker", mqttCfg.BrokerURL).
		Int("port", mqttCfg.Port).
		Str("topic_root", mqttCfg.TopicRoot).
		Msg("connecting to MQTT broker")

	token := h.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect failed: %w", token.Error())
	}

	h.subscribeEvents()

	<-ctx.Done()

	h.publishShutdown()
	h.client.Disconnect(5000)
	log.Info().Msg("MQTT disconnected")
	return nil
}

// subscribeEvents registers bus handlers for MQTT publishing.
func (h *MQTTHandler) subscribeEvents() {
	h.eventBus.Subscribe(events.EventGameCreated, "mqtt.gameCreated", h.onGameLifecycle("created"))
	h.eventBus.Subscribe(events.EventGameStarted, "mqtt.gameStarted", h.onGameLifecycle("started"))
	h.eventBus.Subscribe(events.EventGameDeleted, "mqtt.gameDeleted", h.onGameLifecycle("deleted"))
	h.eventBus.Subscribe(events.EventGameOver, "mqtt.gameOver", h.onGameOver)
	h.eventBus.Subscribe(events.EventClientAuthenticated, "mqtt.clientAuth", h.onPlayer("authenticated"))
	h.eventBus.Subscribe(events.EventClientDisconnected, "mqtt.clientGone", h.onPlayer("disconnected"))
	h.eventBus.Subscribe(events.EventNicknameTakeover, "mqtt.takeover", h.onTakeover)
}

// topic joins the configured topic root with a suffix.
func (h *MQTTHandler) topic(suffix string) string {
	root := h.cfg.GetApplicationData().MQTT.TopicRoot
	if root == "" {
		root = "hexhaven"
	}
	return root + "/" + suffix
}

// publish sends a JSON message to an MQTT topic at QoS 1.
func (h *MQTTHandler) publish(topic string, payload interface{}) {
	if !h.client.IsConnected() {
		return
	}

	msg := h.buildMessage(payload)
	data, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to marshal MQTT message")
		return
	}

	token := h.client.Publish(topic, 1, false, data)
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

// buildMessage combines metadata with the event payload.
func (h *MQTTHandler) buildMessage(payload interface{}) map[string]interface{} {
	msg := make(map[string]interface{})
	for k, v := range h.metadata {
		msg[k] = v
	}
	msg["payload"] = payload
	msg["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return msg
}

func (h *MQTTHandler) onGameLifecycle(phase string) events.HandlerFunc {
	return func(ctx context.Context, event events.Event) error {
		h.publish(h.topic(TopicGames), map[string]interface{}{
			"event":   phase,
			"payload": event.Payload,
		})
		return nil
	}
}

func (h *MQTTHandler) onGameOver(ctx context.Context, event events.Event) error {
	h.publish(h.topic(TopicResults), event.Payload)
	return nil
}

func (h *MQTTHandler) onPlayer(phase string) events.HandlerFunc {
	return func(ctx context.Context, event events.Event) error {
		h.publish(h.topic(TopicPlayers), map[string]interface{}{
			"event":   phase,
			"payload": event.Payload,
		})
		return nil
	}
}

func (h *MQTTHandler) onTakeover(ctx context.Context, event events.Event) error {
	h.publish(h.topic(TopicPlayers), map[string]interface{}{
		"event":   "takeover",
		"payload": event.Payload,
	})
	return nil
}

// publishShutdown sends a final status message before disconnecting.
func (h *MQTTHandler) publishShutdown() {
	h.publish(h.topic(TopicStatus), map[string]interface{}{
		"event": "shutdown",
	})
}
