package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
)

// Mode selects development or production behavior: sourcemaps and readable output
// versus minified, compressed output without sourcemaps.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Environment variables consulted by ResolveMode, highest precedence first.
const (
	EnvMode     = "MARKUP_ENV"
	EnvNodeMode = "NODE_ENV"
)

// NormalizeMode converts user input to a Mode, returning empty string for unknown values.
func NormalizeMode(raw string) Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "development", "dev":
		return ModeDevelopment
	case "production", "prod":
		return ModeProduction
	default:
		return ""
	}
}

// IsProduction reports whether m is the production mode.
func (m Mode) IsProduction() bool { return m == ModeProduction }

func (m Mode) String() string { return string(m) }

// ResolveMode determines the effective mode. Precedence:
// 1. explicit flag value
// 2. MARKUP_ENV
// 3. NODE_ENV
// 4. mode from the configuration file
// 5. fallback: development
//
// Any non-empty value that is not a known mode is a configuration error.
func ResolveMode(flag string, cfg *Config) (Mode, error) {
	candidates := []struct {
		source string
		value  string
	}{
		{"flag", flag},
		{EnvMode, os.Getenv(EnvMode)},
		{EnvNodeMode, os.Getenv(EnvNodeMode)},
	}
	if cfg != nil {
		candidates = append(candidates, struct {
			source string
			value  string
		}{"config", string(cfg.Mode)})
	}
	for _, c := range candidates {
		if strings.TrimSpace(c.value) == "" {
			continue
		}
		m := NormalizeMode(c.value)
		if m == "" {
			return "", errors.ConfigError("unknown mode").
				WithContext("source", c.source).
				WithContext("value", c.value).
				Build()
		}
		slog.Debug("Resolved mode", "mode", m, "source", c.source)
		return m, nil
	}
	return ModeDevelopment, nil
}
