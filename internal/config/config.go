package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime parameter of the verification system.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Agents   AgentsConfig   `yaml:"agents"`
	Kitchen  KitchenConfig  `yaml:"kitchen"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

// AgentsConfig names the three expected reporters and which of them is the
// primary order-taker.
type AgentsConfig struct {
	Expected []string `yaml:"expected"`
	Primary  string   `yaml:"primary"`
}

type KitchenConfig struct {
	DineInSeconds        int `yaml:"dine_in_seconds"`
	PickupSeconds        int `yaml:"pickup_seconds"`
	DeliverySeconds      int `yaml:"delivery_seconds"`
	TimerTickSeconds     int `yaml:"timer_tick_seconds"`
	HeartbeatIntervalSec int `yaml:"heartbeat_interval_seconds"`
}

// Load reads a YAML config file, applies defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Port == 0 {
		c.RabbitMQ.Port = 5672
	}
	if c.RabbitMQ.VHost == "" {
		c.RabbitMQ.VHost = "/"
	}
	if len(c.Agents.Expected) == 0 {
		c.Agents.Expected = []string{"mara", "llama", "ollama"}
	}
	if c.Agents.Primary == "" {
		c.Agents.Primary = c.Agents.Expected[0]
	}
	if c.Kitchen.DineInSeconds == 0 {
		c.Kitchen.DineInSeconds = 8
	}
	if c.Kitchen.PickupSeconds == 0 {
		c.Kitchen.PickupSeconds = 10
	}
	if c.Kitchen.DeliverySeconds == 0 {
		c.Kitchen.DeliverySeconds = 12
	}
	if c.Kitchen.TimerTickSeconds == 0 {
		c.Kitchen.TimerTickSeconds = 1
	}
	if c.Kitchen.HeartbeatIntervalSec == 0 {
		c.Kitchen.HeartbeatIntervalSec = 30
	}
}

func (c *Config) validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.RabbitMQ.Host == "" || c.RabbitMQ.User == "" {
		return fmt.Errorf("rabbitmq config incomplete")
	}
	if len(c.Agents.Expected) != 3 {
		return fmt.Errorf("agents.expected must name exactly 3 agents, got %d", len(c.Agents.Expected))
	}
	primaryOK := false
	for _, a := range c.Agents.Expected {
		if a == c.Agents.Primary {
			primaryOK = true
		}
	}
	if !primaryOK {
		return fmt.Errorf("agents.primary %q is not in agents.expected", c.Agents.Primary)
	}
	return nil
}
