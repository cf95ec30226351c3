package separation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"stemdeck/internal/services"
)

// Job statuses reported by the service.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusError      = "error"
)

// StatusResponse is one poll result.
type StatusResponse struct {
	Status   string            `json:"status"`
	Progress *float64          `json:"progress,omitempty"`
	Message  string            `json:"message,omitempty"`
	Stage    string            `json:"stage,omitempty"`
	Stems    map[string]string `json:"stems,omitempty"`
	Error    string            `json:"error,omitempty"`
	ETA      *float64          `json:"etaSeconds,omitempty"`
}

// Terminal reports whether no further polling is needed.
func (s StatusResponse) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusError:
		return true
	}
	return false
}

// Status fetches the state of jobID. A non-empty statusEndpoint from the
// submit response takes precedence over /separate/{id}. Status is a single
// attempt; the poll loop owns retries.
func (c *Client) Status(ctx context.Context, jobID, statusEndpoint string) (StatusResponse, error) {
	target := strings.TrimSpace(statusEndpoint)
	if target == "" {
		if strings.TrimSpace(jobID) == "" {
			return StatusResponse{}, services.Wrap(services.ErrInput, "separation", "status", "job id is empty", nil)
		}
		target = separatePath + "/" + url.PathEscape(jobID)
	}
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return StatusResponse{}, err
	}
	body, err := c.send(req)
	if err != nil {
		return StatusResponse{}, err
	}
	var resp StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return StatusResponse{}, services.Wrap(services.ErrTransient, "separation", "status", "malformed status body", err)
	}
	resp.Status = strings.ToLower(strings.TrimSpace(resp.Status))
	switch resp.Status {
	case StatusStarting, StatusProcessing, StatusCompleted, StatusFailed, StatusError:
	default:
		return StatusResponse{}, services.Wrap(services.ErrTransient, "separation", "status", fmt.Sprintf("unknown status %q", resp.Status), nil)
	}
	return resp, nil
}
