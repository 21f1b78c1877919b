// ABOUTME: Server configuration resolved once at startup from an optional .env file and the process environment.
// ABOUTME: Produces an immutable Config with documented defaults; never mutates the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-envparse"
)

// Recognized keys.
const (
	KeyAdminPassword  = "ADMIN_PASSWORD"
	KeySessionTimeout = "SESSION_TIMEOUT"
	KeyPort           = "PORT"
)

// Defaults applied when a key is absent or empty.
const (
	DefaultSessionTimeout = 30
	DefaultPort           = 8000
)

var (
	ErrInvalidTimeout = errors.New("SESSION_TIMEOUT must be a non-negative integer")
	ErrInvalidPort    = errors.New("PORT must be an integer between 1 and 65535")
)

// Config holds the values the dev/admin server consults at request time.
// It is built once by Load and must not be modified afterwards.
type Config struct {
	AdminPassword  string // Shared admin secret (ADMIN_PASSWORD). Empty disables login.
	SessionTimeout int    // Admin session timeout in minutes (SESSION_TIMEOUT, default: 30)
	Port           int    // Listen port (PORT, default: 8000)
}

// Lookup resolves a key to a value. The boolean reports whether the key is set.
type Lookup func(key string) (string, bool)

// Load reads the env file at path (if it exists) and resolves a Config from it.
// Values already present in the process environment win over file values.
func Load(path string) (*Config, error) {
	fileValues, err := ReadEnvFile(path)
	if err != nil {
		return nil, err
	}
	return FromLookup(layered(os.LookupEnv, mapLookup(fileValues)))
}

// ReadEnvFile parses a KEY=VALUE file into a map. A missing file yields an
// empty map. Quoted values have their surrounding quotes stripped; `$` is
// always literal, so secrets are never expanded.
func ReadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening env file %s: %w", path, err)
	}
	defer f.Close()

	values, err := envparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return values, nil
}

// FromLookup builds a Config from an arbitrary key source, applying defaults
// and validating numeric keys.
func FromLookup(lookup Lookup) (*Config, error) {
	timeout, err := intOrDefault(lookup, KeySessionTimeout, DefaultSessionTimeout)
	if err != nil || timeout < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeout, valueOf(lookup, KeySessionTimeout))
	}

	port, err := intOrDefault(lookup, KeyPort, DefaultPort)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPort, valueOf(lookup, KeyPort))
	}

	return &Config{
		AdminPassword:  valueOf(lookup, KeyAdminPassword),
		SessionTimeout: timeout,
		Port:           port,
	}, nil
}

// Addr returns the loopback listen address for the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// LoginEnabled reports whether an admin secret is configured.
func (c *Config) LoginEnabled() bool {
	return c.AdminPassword != ""
}

func intOrDefault(lookup Lookup, key string, defaultVal int) (int, error) {
	raw := strings.TrimSpace(valueOf(lookup, key))
	if raw == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(raw)
}

func valueOf(lookup Lookup, key string) string {
	v, _ := lookup(key)
	return v
}

// layered returns a Lookup that consults each source in order and returns the
// first non-empty value.
func layered(sources ...Lookup) Lookup {
	return func(key string) (string, bool) {
		for _, src := range sources {
			if v, ok := src(key); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}
}

func mapLookup(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}
