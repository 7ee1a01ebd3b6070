// internal/mqtt/client.go
package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"vroom-gateway/internal/config"
)

// Connect starts a paho client for cfg. It does not wait for the broker:
// paho keeps retrying in the background and queues publishes meanwhile.
func Connect(cfg config.MQTTConfig, logger *slog.Logger) (paho.Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt: %w: broker is empty", config.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mqtt", "broker", cfg.Broker)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(60 * time.Second).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetConnectRetry(true).
		SetConnectRetryInterval(10 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(paho.Client) {
			logger.Info("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", "error", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Error("mqtt connect", "error", err)
		}
	}()
	return client, nil
}
