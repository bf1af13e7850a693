package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL       string `envconfig:"PROBE_URL" default:"ws://localhost:8080/ws?v=1"`
	AdminAddr string `envconfig:"PROBE_ADMIN_ADDR"`
	Clients   int    `envconfig:"PROBE_CLIENTS" default:"3"`
	Room      string `envconfig:"PROBE_ROOM" default:"probe"`
	// PROBE_TIMEOUT bounds every wait on the server
	Timeout time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s"`
	// PROBE_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"PROBE_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
