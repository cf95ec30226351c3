package separation

import (
	"context"
	"encoding/json"
	"net/http"

	"stemdeck/internal/services"
	"stemdeck/internal/upload"
)

const constraintsPath = "/upload/constraints"

var _ upload.Source = (*Client)(nil)

// Constraints fetches the accepted upload types and size limit.
func (c *Client) Constraints(ctx context.Context) (upload.Constraints, error) {
	var out upload.Constraints
	err := c.withRetry(ctx, "constraints", func() error {
		req, err := c.newRequest(ctx, http.MethodGet, constraintsPath, nil)
		if err != nil {
			return err
		}
		body, err := c.send(req)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return services.Wrap(services.ErrTransient, "separation", "constraints", "malformed body", err)
		}
		return nil
	})
	if err != nil {
		return upload.Constraints{}, err
	}
	return out, nil
}
