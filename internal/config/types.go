package config

import (
	"strings"
	"time"
)

// Config is the project configuration. It is loaded once at startup and treated as
// immutable for the lifetime of the process.
type Config struct {
	Name    string                   `yaml:"name"`
	Source  string                   `yaml:"source"`
	Dest    string                   `yaml:"dest"`
	Mode    Mode                     `yaml:"mode"`
	Targets []string                 `yaml:"targets,omitempty"` // esbuild engine targets, e.g. chrome58
	Server  ServerConfig             `yaml:"server"`
	Assets  map[string]AssetOverride `yaml:"assets,omitempty"`
	Styles  StylesConfig             `yaml:"styles"`
	Scripts ScriptsConfig            `yaml:"scripts"`
	Images  ImagesConfig             `yaml:"images"`
	Sprites SpritesConfig            `yaml:"sprites"`
	Watch   WatchConfig              `yaml:"watch"`
	Metrics MetricsConfig            `yaml:"metrics"`
	State   StateConfig              `yaml:"state"`
	Notify  NotifyConfig             `yaml:"notify"`
	Deploy  DeployConfig             `yaml:"deploy"`
	Retry   RetryConfig              `yaml:"retry"`

	// Root is the project directory: the directory holding the configuration file.
	Root string `yaml:"-"`
}

// ServerConfig configures the local development server.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Open       bool   `yaml:"open"`
	LiveReload *bool  `yaml:"live_reload,omitempty"`
}

// LiveReloadEnabled reports whether clients get the reload script injected.
func (s ServerConfig) LiveReloadEnabled() bool {
	return s.LiveReload == nil || *s.LiveReload
}

// AssetOverride replaces parts of the default layout for one asset class. Globs are
// slash-separated and relative to the source root; Dest is relative to the dest root.
type AssetOverride struct {
	Source             string   `yaml:"source,omitempty"`
	Watch              string   `yaml:"watch,omitempty"`
	Exclude            []string `yaml:"exclude,omitempty"`
	Dest               string   `yaml:"dest,omitempty"`
	CleanBeforeRebuild *bool    `yaml:"clean_before_rebuild,omitempty"`
}

// StylesConfig configures the stylesheet preprocessor.
type StylesConfig struct {
	SassBinary   string   `yaml:"sass_binary,omitempty"`
	IncludePaths []string `yaml:"include_paths,omitempty"`
}

// ScriptsConfig configures the script pipeline.
type ScriptsConfig struct {
	// Bundle resolves ES module imports from the entry points instead of
	// only expanding include directives.
	Bundle bool `yaml:"bundle"`
}

// ImagesConfig configures image optimization.
type ImagesConfig struct {
	Concurrency int    `yaml:"concurrency"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	TinyPNGKey  string `yaml:"tinypng_key,omitempty"`
	TinyPNGURL  string `yaml:"tinypng_url,omitempty"`
}

// SpritesConfig configures sprite generation.
type SpritesConfig struct {
	// StyleDir receives the generated stylesheet fragments, relative to the project root.
	StyleDir string `yaml:"style_dir"`
	Padding  int    `yaml:"padding"`
}

// WatchConfig configures the watch dispatcher.
type WatchConfig struct {
	Debounce     string `yaml:"debounce"`
	PollInterval string `yaml:"poll_interval,omitempty"`
}

// DebounceDuration returns the parsed debounce window (0 when unset or invalid).
func (w WatchConfig) DebounceDuration() time.Duration {
	return parseDuration(w.Debounce)
}

// PollDuration returns the parsed polling interval; 0 disables polling.
func (w WatchConfig) PollDuration() time.Duration {
	return parseDuration(w.PollInterval)
}

// MetricsConfig toggles Prometheus metrics on the dev server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StateConfig configures the run history database.
type StateConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`
}

// NotifyConfig configures build notifications.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// DeployConfig configures uploads of the destination tree to an S3-compatible bucket.
type DeployConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RetryConfig configures retries of network collaborators (TinyPNG, deploy).
type RetryConfig struct {
	Backoff    RetryBackoffMode `yaml:"backoff"`
	Initial    string           `yaml:"initial"`
	Max        string           `yaml:"max"`
	MaxRetries int              `yaml:"max_retries"`
}

// InitialDelay returns the parsed initial delay.
func (r RetryConfig) InitialDelay() time.Duration { return parseDuration(r.Initial) }

// MaxDelay returns the parsed delay cap.
func (r RetryConfig) MaxDelay() time.Duration { return parseDuration(r.Max) }

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RetryBackoffFixed):
		return RetryBackoffFixed
	case string(RetryBackoffLinear):
		return RetryBackoffLinear
	case string(RetryBackoffExponential):
		return RetryBackoffExponential
	default:
		return ""
	}
}

func parseDuration(raw string) time.Duration {
	if strings.TrimSpace(raw) == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
