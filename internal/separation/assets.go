package separation

import (
	"context"
	"net/http"
	"strings"

	"stemdeck/internal/audio"
	"stemdeck/internal/objecturl"
	"stemdeck/internal/services"
)

var _ audio.AssetFetcher = (*Client)(nil)

// Fetch returns the bytes behind an asset URL. blob: URLs resolve through the
// registry, s3:// URLs through the object store, and anything else over HTTP
// with relative paths joined onto the base URL. Bearer tokens are only sent to
// the service host.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, services.Wrap(services.ErrInput, "separation", "fetch asset", "empty url", nil)
	}
	if objecturl.IsObjectURL(rawURL) {
		if c.registry == nil {
			return nil, services.Wrap(services.ErrConfiguration, "separation", "fetch asset", "no object url registry", nil)
		}
		return c.registry.Fetch(ctx, rawURL)
	}
	if bucket, key, ok := ParseS3URL(rawURL); ok {
		if c.store == nil {
			return nil, services.Wrap(services.ErrConfiguration, "separation", "fetch asset", "s3 url without a configured object store", nil)
		}
		var data []byte
		err := c.withRetry(ctx, "fetch asset", func() error {
			var err error
			data, err = c.store.Get(ctx, bucket, key)
			if err != nil {
				return services.Wrap(services.ErrTransient, "separation", "fetch asset", rawURL, err)
			}
			return nil
		})
		return data, err
	}

	var data []byte
	err := c.withRetry(ctx, "fetch asset", func() error {
		req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "audio/*")
		data, err = c.send(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
