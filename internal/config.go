package internal

import (
	"chat-presence/domain"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host      string `env:"HOST,default=localhost"`
	Port      int    `env:"PORT,default=8080"`
	AdminPort int    `env:"ADMIN_PORT,default=8081"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`

	InboundBufferSize   int `env:"INBOUND_BUFFER_SIZE,default=32"`
	OutboundBufferSize  int `env:"OUTBOUND_BUFFER_SIZE,default=64"`
	TelemetryBufferSize int `env:"TELEMETRY_BUFFER_SIZE,default=1024"`

	// Mirrors the 60 seconds ping timeout of the legacy socket server
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	MinIdleTimeout time.Duration `env:"MIN_IDLE_TIMEOUT,default=5s"`
	MaxIdleTimeout time.Duration `env:"MAX_IDLE_TIMEOUT,default=10m"`
	PingInterval   time.Duration `env:"PING_INTERVAL,default=25s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	MaxFrameSize   int64         `env:"MAX_FRAME_SIZE,default=65536"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS,default=*"`

	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=4"`

	TranslatorURL       string        `env:"TRANSLATOR_URL,required=true"`
	TranslatorTimeout   time.Duration `env:"TRANSLATOR_TIMEOUT,default=5s"`
	TranslationCacheTTL time.Duration `env:"TRANSLATION_CACHE_TTL,default=24h"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH,required=true"`
}

// Validate checks what struct tags cannot express.
func (c Config) Validate() error {
	if c.MinIdleTimeout <= 0 || c.MinIdleTimeout > c.MaxIdleTimeout {
		return fmt.Errorf("MIN_IDLE_TIMEOUT must be positive and below MAX_IDLE_TIMEOUT")
	}
	if c.IdleTimeout < c.MinIdleTimeout || c.IdleTimeout > c.MaxIdleTimeout {
		return fmt.Errorf("IDLE_TIMEOUT must be within [MIN_IDLE_TIMEOUT, MAX_IDLE_TIMEOUT]")
	}
	if c.InboundBufferSize <= 0 || c.OutboundBufferSize <= 0 || c.TelemetryBufferSize <= 0 {
		return fmt.Errorf("buffer sizes must be positive")
	}
	if c.PingInterval <= 0 || c.MetricInterval <= 0 {
		return fmt.Errorf("PING_INTERVAL and METRIC_INTERVAL must be positive")
	}
	if c.PingInterval >= c.IdleTimeout {
		return fmt.Errorf("PING_INTERVAL must be below IDLE_TIMEOUT")
	}
	return nil
}

func (c Config) HandshakeBounds() domain.HandshakeBounds {
	return domain.HandshakeBounds{
		DefaultIdleTimeout: c.IdleTimeout,
		MinIdleTimeout:     c.MinIdleTimeout,
		MaxIdleTimeout:     c.MaxIdleTimeout,
	}
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
