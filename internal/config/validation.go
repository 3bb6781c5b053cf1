package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
)

// AssetClassIDs lists the asset classes an `assets` override may name.
var AssetClassIDs = []string{"html", "js", "css", "image-raster", "image-vector", "sprite", "sprite-vector", "font"}

// Validate checks the configuration after defaults are applied.
// Every failure is a ConfigError; the process must not run any task after one.
func Validate(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, check := range []func() error{
		v.validateRoots,
		v.validateMode,
		v.validateServer,
		v.validateAssets,
		v.validateDurations,
		v.validateDeploy,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validateRoots() error {
	src := strings.TrimSpace(cv.config.Source)
	dst := strings.TrimSpace(cv.config.Dest)
	if src == "" {
		return errors.ConfigError("source directory is empty").WithContext("field", "source").Build()
	}
	if dst == "" {
		return errors.ConfigError("destination directory is empty").WithContext("field", "dest").Build()
	}
	srcAbs := cv.config.Abs(src)
	dstAbs := cv.config.Abs(dst)
	if srcAbs == dstAbs {
		return errors.ConfigError("source and destination directories are the same").
			WithContext("source", src).WithContext("dest", dst).Build()
	}
	if within(srcAbs, dstAbs) || within(dstAbs, srcAbs) {
		return errors.ConfigError("source and destination directories overlap").
			WithContext("source", src).WithContext("dest", dst).Build()
	}
	if dstAbs == cv.config.Root || within(dstAbs, cv.config.Root) {
		return errors.ConfigError("destination directory must not contain the project root").
			WithContext("dest", dst).Build()
	}
	return nil
}

func (cv *configurationValidator) validateMode() error {
	if cv.config.Mode != "" && NormalizeMode(string(cv.config.Mode)) == "" {
		return errors.ConfigError("unknown mode").WithContext("value", string(cv.config.Mode)).Build()
	}
	return nil
}

func (cv *configurationValidator) validateServer() error {
	if cv.config.Server.Port < 0 || cv.config.Server.Port > 65535 {
		return errors.ConfigError(fmt.Sprintf("server port out of range: %d", cv.config.Server.Port)).
			WithContext("field", "server.port").Build()
	}
	return nil
}

func (cv *configurationValidator) validateAssets() error {
	for id, override := range cv.config.Assets {
		if !slices.Contains(AssetClassIDs, id) {
			return errors.ConfigError("unknown asset class").WithContext("class", id).Build()
		}
		if override.Dest != "" && (filepath.IsAbs(override.Dest) || escapes(override.Dest)) {
			return errors.ConfigError("asset destination escapes the destination root").
				WithContext("class", id).WithContext("dest", override.Dest).Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateDurations() error {
	fields := map[string]string{
		"watch.debounce":      cv.config.Watch.Debounce,
		"watch.poll_interval": cv.config.Watch.PollInterval,
		"retry.initial":       cv.config.Retry.Initial,
		"retry.max":           cv.config.Retry.Max,
	}
	for field, raw := range fields {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			return errors.ConfigError("invalid duration").WithContext("field", field).WithContext("value", raw).Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateDeploy() error {
	d := cv.config.Deploy
	if d.Endpoint != "" && d.Bucket == "" {
		return errors.ConfigError("deploy endpoint configured without a bucket").WithContext("field", "deploy.bucket").Build()
	}
	return nil
}

// within reports whether child is strictly inside parent. Both must be absolute and clean.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && !escapes(rel)
}

func escapes(rel string) bool {
	rel = filepath.Clean(filepath.FromSlash(rel))
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
