package transform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ifamed/markup-boilerplate/internal/cache"
	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
	"github.com/ifamed/markup-boilerplate/internal/retry"
)

// TinyPNG compresses images through the TinyPNG shrink API: the image is posted,
// and the compressed result is downloaded from the returned location.
type TinyPNG struct {
	endpoint string
	key      string
	client   *http.Client
	policy   retry.Policy
	cache    *cache.Results
}

// NewTinyPNG creates a client for endpoint authenticated with key.
func NewTinyPNG(endpoint, key string, policy retry.Policy, c *cache.Results) *TinyPNG {
	return &TinyPNG{
		endpoint: endpoint,
		key:      key,
		client:   &http.Client{Timeout: 60 * time.Second},
		policy:   policy,
		cache:    c,
	}
}

// Enabled reports whether an API key is configured.
func (t *TinyPNG) Enabled() bool { return t != nil && t.key != "" }

// Compress returns the compressed image.
func (t *TinyPNG) Compress(ctx context.Context, name string, in []byte) ([]byte, error) {
	if !t.Enabled() {
		return nil, errors.ConfigError("tinypng key is not configured").WithContext("field", "images.tinypng_key").Build()
	}
	key := cache.Key(in, "tinypng")
	if out, ok := t.cache.Get(key); ok {
		return out, nil
	}
	var out []byte
	err := t.policy.Do(ctx, "tinypng", func(ctx context.Context) error {
		location, err := t.shrink(ctx, in)
		if err != nil {
			return err
		}
		out, err = t.download(ctx, location)
		return err
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "tinypng compression failed").
			WithContext("file", name).Build()
	}
	t.cache.Add(key, out)
	return out, nil
}

func (t *TinyPNG) shrink(ctx context.Context, in []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(in))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth("api", t.key)
	resp, err := t.client.Do(req)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryNetwork, "tinypng request").Retryable().Build()
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := statusError(resp); err != nil {
		return "", err
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.NetworkError("tinypng response has no location").Build()
	}
	return location, nil
}

func (t *TinyPNG) download(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("api", t.key)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "tinypng download").Retryable().Build()
	}
	defer func() { _ = resp.Body.Close() }()
	if err := statusError(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.ConfigError("tinypng rejected the api key").WithContext("status", resp.StatusCode).Build()
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return errors.NetworkError(fmt.Sprintf("tinypng returned %d", resp.StatusCode)).Build()
	default:
		return errors.NewError(errors.CategoryNetwork, fmt.Sprintf("tinypng returned %d", resp.StatusCode)).Build()
	}
}
