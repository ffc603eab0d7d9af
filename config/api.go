package config

import (
	"net/url"
	"strings"
	"time"
)

// APIConfig contains the Pastibot backend configuration.
type APIConfig struct {
	// BaseURL is the API root, including the /api prefix.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:3000/api"`

	// Timeout bounds every backend request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to API configuration values.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// RealtimeConfig controls the robot event stream.
type RealtimeConfig struct {
	// URL is the websocket endpoint. Derived from the API base URL when empty.
	URL string `env:"URL"`

	// ReconnectDelay is the pause between connection attempts.
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY" envDefault:"3s"`
}

// Sanitize derives URL from apiBaseURL when unset: the host of the API with a
// ws/wss scheme and the /robot/events path.
func (c *RealtimeConfig) Sanitize(apiBaseURL string) {
	c.URL = strings.TrimSpace(c.URL)
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 3 * time.Second
	}
	if c.URL != "" || apiBaseURL == "" {
		return
	}
	u, err := url.Parse(apiBaseURL)
	if err != nil || u.Host == "" {
		return
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/robot/events"
	u.RawQuery = ""
	c.URL = u.String()
}
