package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// ProjectDefaultApplier handles the project layout defaults.
type ProjectDefaultApplier struct{}

func (p *ProjectDefaultApplier) Domain() string { return "project" }

func (p *ProjectDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg.Root = wd
	}
	if cfg.Source == "" {
		cfg.Source = "src"
	}
	if cfg.Dest == "" {
		cfg.Dest = "build"
	}
	if cfg.Name == "" {
		cfg.Name = projectName(cfg.Root)
	}
	if cfg.Mode != "" {
		if m := NormalizeMode(string(cfg.Mode)); m != "" {
			cfg.Mode = m
		}
	}
	return nil
}

// projectName reads the name field of package.json in root, falling back to the
// directory name.
func projectName(root string) string {
	// #nosec G304 -- package.json lives in the project root
	if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil && gjson.ValidBytes(data) {
		if name := strings.TrimSpace(gjson.GetBytes(data, "name").String()); name != "" {
			return name
		}
	}
	return filepath.Base(root)
}

// ServerDefaultApplier handles dev server defaults.
type ServerDefaultApplier struct{}

func (s *ServerDefaultApplier) Domain() string { return "server" }

func (s *ServerDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9000
	}
	return nil
}

// AssetsDefaultApplier handles per-class asset defaults.
type AssetsDefaultApplier struct{}

func (a *AssetsDefaultApplier) Domain() string { return "assets" }

func (a *AssetsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Sprites.StyleDir == "" {
		cfg.Sprites.StyleDir = filepath.ToSlash(filepath.Join(cfg.Source, "assets", "stylesheets", "sprites"))
	}
	if cfg.Sprites.Padding < 0 {
		cfg.Sprites.Padding = 0
	}
	if cfg.Sprites.Padding == 0 {
		cfg.Sprites.Padding = 2
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = []string{"chrome58", "firefox57", "safari11", "edge16"}
	}
	return nil
}

// ImagesDefaultApplier handles image optimization defaults.
type ImagesDefaultApplier struct{}

func (i *ImagesDefaultApplier) Domain() string { return "images" }

func (i *ImagesDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Images.Concurrency <= 0 {
		cfg.Images.Concurrency = 4
	}
	if cfg.Images.JPEGQuality <= 0 || cfg.Images.JPEGQuality > 100 {
		cfg.Images.JPEGQuality = 82
	}
	if cfg.Images.TinyPNGURL == "" {
		cfg.Images.TinyPNGURL = "https://api.tinify.com/shrink"
	}
	return nil
}

// WatchDefaultApplier handles watch dispatcher defaults.
type WatchDefaultApplier struct{}

func (w *WatchDefaultApplier) Domain() string { return "watch" }

func (w *WatchDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "300ms"
	}
	return nil
}

// MonitoringDefaultApplier handles metrics, state, and notification defaults.
type MonitoringDefaultApplier struct{}

func (m *MonitoringDefaultApplier) Domain() string { return "monitoring" }

func (m *MonitoringDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.State.Path == "" {
		cfg.State.Path = filepath.Join(".markup", "history.db")
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "markup.builds"
	}
	return nil
}

// RetryDefaultApplier handles retry defaults for network collaborators.
type RetryDefaultApplier struct{}

func (r *RetryDefaultApplier) Domain() string { return "retry" }

func (r *RetryDefaultApplier) ApplyDefaults(cfg *Config) error {
	if mode := NormalizeRetryBackoff(string(cfg.Retry.Backoff)); mode != "" {
		cfg.Retry.Backoff = mode
	} else {
		cfg.Retry.Backoff = RetryBackoffLinear
	}
	if cfg.Retry.Initial == "" {
		cfg.Retry.Initial = "1s"
	}
	if cfg.Retry.Max == "" {
		cfg.Retry.Max = "30s"
	}
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 2
	}
	return nil
}

// DefaultAppliers returns the appliers in the order they run.
func DefaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&ProjectDefaultApplier{},
		&ServerDefaultApplier{},
		&AssetsDefaultApplier{},
		&ImagesDefaultApplier{},
		&WatchDefaultApplier{},
		&MonitoringDefaultApplier{},
		&RetryDefaultApplier{},
	}
}

// ApplyDefaults runs every DefaultApplier over cfg.
func ApplyDefaults(cfg *Config) error {
	for _, applier := range DefaultAppliers() {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
