// Package mediaclient is a small client for the media API, mainly the
// status polling loop admin frontends and scripts run after an upload.
package mediaclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultPollInterval matches the admin UI's poll cadence.
const DefaultPollInterval = 2 * time.Second

// Status mirrors GET /media/{id}/status. Status is nil once processing
// completed; Data is populated only then.
type Status struct {
	ID         string  `json:"id"`
	Status     *string `json:"status"`
	Processing bool    `json:"processing"`
	Failed     bool    `json:"failed"`
	Data       *Data   `json:"data"`
}

type Data struct {
	OriginalURL  string   `json:"original_url"`
	MediumURL    string   `json:"medium_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	AltText      string   `json:"alt_text"`
	Tags         []string `json:"tags"`
	Filename     string   `json:"filename"`
}

// Terminal reports whether polling should stop: the run either completed
// or failed, and no further automatic transition will happen.
func (s Status) Terminal() bool { return !s.Processing }

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the current processing status once.
func (c *Client) Status(ctx context.Context, id string) (*Status, error) {
	url := fmt.Sprintf("%s/media/%s/status", c.BaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("media %s: not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media %s: unexpected status %d", id, resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("media %s: decode status: %w", id, err)
	}
	return &status, nil
}

// Poll checks the status at a fixed interval until a terminal state is
// observed or the context is cancelled. There is no implicit lifecycle:
// cancelling ctx is the only other way out.
func (c *Client) Poll(ctx context.Context, id string, interval time.Duration) (*Status, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		if status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
