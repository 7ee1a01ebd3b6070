// Package mqtt announces sensors to Home Assistant through MQTT discovery and
// publishes their values.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"vroom-gateway/internal/config"
	"vroom-gateway/internal/entity"
)

const publishTimeout = 10 * time.Second

// Publisher is the subset of paho.Client the discovery sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

type device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
}

// discoveryConfig is the Home Assistant sensor discovery payload.
type discoveryConfig struct {
	Name              string  `json:"name"`
	UniqueID          string  `json:"unique_id"`
	ObjectID          string  `json:"object_id"`
	StateTopic        string  `json:"state_topic"`
	UnitOfMeasurement *string `json:"unit_of_measurement,omitempty"`
	Icon              string  `json:"icon,omitempty"`
	Device            device  `json:"device"`
}

// Discovery implements entity.Sink on top of an MQTT connection.
type Discovery struct {
	client          Publisher
	discoveryPrefix string
	baseTopic       string
	qos             byte
	logger          *slog.Logger
}

func NewDiscovery(client Publisher, cfg config.MQTTConfig, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		client:          client,
		discoveryPrefix: strings.TrimSuffix(cfg.DiscoveryPrefix, "/"),
		baseTopic:       strings.TrimSuffix(cfg.BaseTopic, "/"),
		qos:             cfg.QoS,
		logger:          logger.With("component", "mqtt"),
	}
}

func (d *Discovery) ConfigTopic(identity string) string {
	return fmt.Sprintf("%s/sensor/%s/config", d.discoveryPrefix, identity)
}

func (d *Discovery) StateTopic(identity string) string {
	return fmt.Sprintf("%s/%s/state", d.baseTopic, identity)
}

// RegisterEntities implements entity.Sink.
func (d *Discovery) RegisterEntities(batch []entity.Entity) {
	for _, e := range batch {
		payload, err := json.Marshal(discoveryConfig{
			Name:              e.Name,
			UniqueID:          e.Identity,
			ObjectID:          objectID(e.Name),
			StateTopic:        d.StateTopic(e.Identity),
			UnitOfMeasurement: e.Unit,
			Icon:              e.Icon,
			Device: device{
				Identifiers:  []string{"vroom_" + objectID(e.Vehicle)},
				Name:         e.Vehicle,
				Manufacturer: "Torque",
			},
		})
		if err != nil {
			d.logger.Error("marshal discovery config", "identity", e.Identity, "error", err)
			continue
		}
		d.publish(d.ConfigTopic(e.Identity), payload)
	}
}

// PublishValue implements entity.Sink.
func (d *Discovery) PublishValue(identity, value string) {
	d.publish(d.StateTopic(identity), []byte(value))
}

// publish hands the message to paho without waiting for the broker.
func (d *Discovery) publish(topic string, payload []byte) {
	token := d.client.Publish(topic, d.qos, true, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			d.logger.Warn("publish timed out", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			d.logger.Error("publish failed", "topic", topic, "error", err)
		}
	}()
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// objectID turns a display name into something Home Assistant accepts as an entity id.
func objectID(name string) string {
	return strings.Trim(nonWord.ReplaceAllString(strings.ToLower(name), "_"), "_")
}
