// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server struct {
		DataPort int `mapstructure:"data_port"`
		UIPort   int `mapstructure:"ui_port"`
	} `mapstructure:"server"`
	Vehicles []Vehicle  `mapstructure:"vehicles"`
	MQTT     MQTTConfig `mapstructure:"mqtt"`
	Log      struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// Vehicle is one Torque app configuration. An empty Email accepts any client.
type Vehicle struct {
	Email       string `mapstructure:"email"`
	VehicleName string `mapstructure:"vehicle_name"`
}

type MQTTConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Broker          string `mapstructure:"broker"`
	ClientID        string `mapstructure:"client_id"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
	BaseTopic       string `mapstructure:"base_topic"`
	QoS             byte   `mapstructure:"qos"`
}

// Load reads config.yaml from path, applying VROOM_* environment overrides.
// A missing file is not an error: defaults and the environment still apply.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller supplied viper, so flags can be bound first.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.SetEnvPrefix("vroom")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.data_port", 8080)
	v.SetDefault("server.ui_port", 8081)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.client_id", "vroom-gateway")
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")
	v.SetDefault("mqtt.base_topic", "vroom")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks what the gateway cannot start without.
func (c *Config) Validate() error {
	if len(c.Vehicles) == 0 {
		return fmt.Errorf("%w: no vehicles configured", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Vehicles))
	for i, veh := range c.Vehicles {
		if strings.TrimSpace(veh.VehicleName) == "" {
			return fmt.Errorf("%w: vehicles[%d]: vehicle_name is required", ErrInvalidConfig, i)
		}
		if strings.Contains(veh.VehicleName, "/") {
			return fmt.Errorf("%w: vehicles[%d]: vehicle_name %q contains '/'", ErrInvalidConfig, i, veh.VehicleName)
		}
		if seen[veh.VehicleName] {
			return fmt.Errorf("%w: vehicle %q configured twice", ErrInvalidConfig, veh.VehicleName)
		}
		seen[veh.VehicleName] = true
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", ErrInvalidConfig)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("%w: mqtt.qos must be 0, 1 or 2", ErrInvalidConfig)
	}
	if c.Server.DataPort <= 0 || c.Server.UIPort <= 0 {
		return fmt.Errorf("%w: server ports must be positive", ErrInvalidConfig)
	}
	return nil
}
