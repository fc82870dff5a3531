// Package config provides configuration for the chat widget.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultWebhookURL is the chat-trigger webhook the widget was built against.
const DefaultWebhookURL = "https://n8n.srv795148.hstgr.cloud/webhook/eefc0026-c2e2-445c-9fef-0cab5b262745/chat"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHATWIDGET_"

// Config holds the chat widget configuration.
type Config struct {
	// Webhook settings
	WebhookURL       string `env:"WEBHOOK_URL"`
	UserID           string `env:"USER_ID" envDefault:"user-123"`
	WebhookTimeoutMS int    `env:"WEBHOOK_TIMEOUT_MS" envDefault:"0"` // 0 waits forever

	// Server settings
	HTTPPort int `env:"HTTP_PORT" envDefault:"8095"` // serve
	MockPort int `env:"MOCK_PORT" envDefault:"8096"` // mockhook

	// WebSocket settings
	WSPingIntervalMS int   `env:"WS_PING_INTERVAL_MS" envDefault:"30000"`
	WSWriteTimeoutMS int   `env:"WS_WRITE_TIMEOUT_MS" envDefault:"10000"`
	WSReadTimeoutMS  int   `env:"WS_READ_TIMEOUT_MS" envDefault:"60000"`
	WSMaxMessageSize int64 `env:"WS_MAX_MESSAGE_SIZE" envDefault:"65536"`

	// Rendering
	Markdown     bool   `env:"MARKDOWN" envDefault:"true"`
	GlamourStyle string `env:"GLAMOUR_STYLE" envDefault:"auto"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"` // console or json
	LogFile   string `env:"LOG_FILE"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{WebhookURL: DefaultWebhookURL}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Fall back to the unprefixed log settings shared with other services.
	if strings.TrimSpace(os.Getenv(EnvPrefix+"LOG_LEVEL")) == "" {
		if global := strings.TrimSpace(os.Getenv("LOG_LEVEL")); global != "" {
			cfg.LogLevel = global
		}
	}
	if strings.TrimSpace(os.Getenv(EnvPrefix+"LOG_FORMAT")) == "" {
		if global := strings.TrimSpace(os.Getenv("LOG_FORMAT")); global != "" {
			cfg.LogFormat = global
		}
	}

	return cfg, nil
}

// Validate checks the configuration after flags have been applied.
func (c *Config) Validate() error {
	u, err := url.Parse(c.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("webhook url %q must be an absolute http(s) URL", c.WebhookURL)
	}
	if c.WebhookTimeoutMS < 0 {
		return fmt.Errorf("webhook timeout must not be negative, got %d", c.WebhookTimeoutMS)
	}
	if c.WSPingIntervalMS <= 0 || c.WSWriteTimeoutMS <= 0 || c.WSReadTimeoutMS <= 0 {
		return fmt.Errorf("websocket intervals must be positive")
	}
	if c.WSPingIntervalMS >= c.WSReadTimeoutMS {
		return fmt.Errorf("websocket ping interval (%dms) must be shorter than the read timeout (%dms)", c.WSPingIntervalMS, c.WSReadTimeoutMS)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	return nil
}

// WebhookTimeout returns the HTTP timeout for webhook calls.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutMS) * time.Millisecond
}

// WSPingInterval returns how often viewers are pinged.
func (c *Config) WSPingInterval() time.Duration {
	return time.Duration(c.WSPingIntervalMS) * time.Millisecond
}

// WSWriteTimeout returns the deadline for a single websocket write.
func (c *Config) WSWriteTimeout() time.Duration {
	return time.Duration(c.WSWriteTimeoutMS) * time.Millisecond
}

// WSReadTimeout returns how long a viewer may stay silent before it is dropped.
func (c *Config) WSReadTimeout() time.Duration {
	return time.Duration(c.WSReadTimeoutMS) * time.Millisecond
}
