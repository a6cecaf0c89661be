package remote

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/stackcheck/seedimport/internal/config"
)

const defaultExecFunction = "exec_sql"

var (
	// ErrRemoteURLEmpty is returned when no REST endpoint is configured.
	ErrRemoteURLEmpty = errors.New("remote URL cannot be empty")

	// ErrRemoteURLInvalid is returned when the REST endpoint is not an absolute http(s) URL.
	ErrRemoteURLInvalid = errors.New("remote URL must be an absolute http(s) URL")

	// ErrServiceKeyEmpty is returned when no service credential is configured.
	ErrServiceKeyEmpty = errors.New("service key cannot be empty")
)

// Config holds the REST endpoint and credential used for remote execution.
type Config struct {
	BaseURL      string
	ExecFunction string // RPC function that executes raw SQL
	serviceKey   string
}

// LoadConfig loads the remote endpoint configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		BaseURL:      strings.TrimRight(config.GetEnvStr("SEED_REMOTE_URL", ""), "/"),
		ExecFunction: config.GetEnvStr("SEED_EXEC_FUNCTION", defaultExecFunction),
		serviceKey:   config.GetEnvStr("SEED_SERVICE_KEY", ""), // private, never logged
	}
}

// NewConfig builds a config from explicit values.
func NewConfig(baseURL, serviceKey string) *Config {
	return &Config{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ExecFunction: defaultExecFunction,
		serviceKey:   serviceKey,
	}
}

// Validate checks that the endpoint and credential are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrRemoteURLEmpty
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrRemoteURLInvalid, c.BaseURL)
	}

	if strings.TrimSpace(c.serviceKey) == "" {
		return ErrServiceKeyEmpty
	}

	return nil
}

// MaskServiceKey returns the credential with all but its last four characters hidden.
func (c *Config) MaskServiceKey() string {
	const visible = 4

	if len(c.serviceKey) <= visible {
		return strings.Repeat("*", len(c.serviceKey))
	}

	return "***" + c.serviceKey[len(c.serviceKey)-visible:]
}
