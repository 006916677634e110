package widget

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned by Init when required fields are missing.
var ErrInvalidConfig = errors.New("invalid widget configuration")

const (
	// DefaultAPIURL is used when Config.APIURL is empty and defaults are applied.
	DefaultAPIURL = "https://api.bellhop.ai"
	// DefaultGreeting opens every transcript.
	DefaultGreeting = "Hi! How can I help you today?"
)

// Config is the configuration surface exposed to the host.
type Config struct {
	APIKey     string `yaml:"apiKey"`
	CustomerID string `yaml:"customerId"`
	APIURL     string `yaml:"apiUrl"`
	// Inline names the container the host renders into; the widget then stays
	// visible for its whole lifetime.
	Inline         string        `yaml:"inline"`
	Greeting       string        `yaml:"greeting"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// Validate checks the minimum required fields.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" && strings.TrimSpace(c.CustomerID) == "" {
		missing = append(missing, "apiKey or customerId")
	}
	if strings.TrimSpace(c.APIURL) == "" {
		missing = append(missing, "apiUrl")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s required", strings.Join(missing, " and "))
	}
	return nil
}

func (c Config) greeting() string {
	if c.Greeting != "" {
		return c.Greeting
	}
	return DefaultGreeting
}

// secret is what the storage key is derived from.
func (c Config) secret() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return c.CustomerID
}
