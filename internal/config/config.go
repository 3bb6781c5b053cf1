package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "markup.yaml"

// Load reads the configuration at path. When path does not exist and required is
// false, the built-in defaults for the directory holding path are returned.
func Load(path string, required bool) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve configuration path").Build()
	}
	root := filepath.Dir(abs)
	loadEnvFiles(root)

	cfg := &Config{}
	// #nosec G304 -- configuration path is user-provided by design
	data, err := os.ReadFile(abs)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, err
		}
	case stderrors.Is(err, os.ErrNotExist) && !required:
	case stderrors.Is(err, os.ErrNotExist):
		return nil, errors.ConfigError("configuration file not found").WithContext("path", path).Build()
	default:
		return nil, errors.WrapError(err, errors.CategoryConfig, "read configuration file").
			WithContext("path", path).Build()
	}
	cfg.Root = root

	if err := ApplyDefaults(cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "apply defaults").Build()
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the validated built-in configuration for a project rooted at root.
func Default(root string) (*Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve project root").Build()
	}
	cfg := &Config{Root: abs}
	if err := ApplyDefaults(cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "apply defaults").Build()
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.WrapError(err, errors.CategoryConfig, "parse configuration").Build()
	}
	return nil
}

// Abs resolves p against the project root.
func (c *Config) Abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, filepath.FromSlash(p))
}

// SourceRoot returns the absolute source directory.
func (c *Config) SourceRoot() string { return c.Abs(c.Source) }

// DestRoot returns the absolute destination directory.
func (c *Config) DestRoot() string { return c.Abs(c.Dest) }

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}

	clean := false
	example := Config{
		Name:   "markup-boilerplate",
		Source: "src",
		Dest:   "build",
		Mode:   ModeDevelopment,
		Server: ServerConfig{Host: "localhost", Port: 9000},
		Assets: map[string]AssetOverride{
			"css": {CleanBeforeRebuild: &clean},
		},
		Images:  ImagesConfig{Concurrency: 4, JPEGQuality: 82, TinyPNGKey: "${TINYPNG_KEY}"},
		Sprites: SpritesConfig{StyleDir: "src/assets/stylesheets/sprites", Padding: 2},
		Watch:   WatchConfig{Debounce: "300ms"},
		Metrics: MetricsConfig{Enabled: false, Path: "/metrics"},
		State:   StateConfig{Path: ".markup/history.db"},
		Notify:  NotifyConfig{Subject: "markup.builds"},
		Deploy: DeployConfig{
			Endpoint:  "${MARKUP_DEPLOY_ENDPOINT}",
			Bucket:    "${MARKUP_DEPLOY_BUCKET}",
			AccessKey: "${MARKUP_DEPLOY_ACCESS_KEY}",
			SecretKey: "${MARKUP_DEPLOY_SECRET_KEY}",
			UseSSL:    true,
		},
		Retry: RetryConfig{Backoff: RetryBackoffLinear, Initial: "1s", Max: "30s", MaxRetries: 2},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal example configuration").Build()
	}
	// #nosec G306 -- configuration file is meant to be readable
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write configuration file").
			WithContext("path", path).Build()
	}
	return nil
}
