package geoid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client fetches an undulation grid from the geoid collaborator service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a geoid grid client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// FetchGrid performs a single-shot fetch of the undulation grid. There is no
// retry here: a failed fetch is reported once by the caller, which then runs
// in ellipsoid-only fallback mode.
func (c *Client) FetchGrid(ctx context.Context) (*Grid, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geoid fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geoid service error: status %d: %s", resp.StatusCode, body)
	}

	var g Grid
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode geoid grid: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geoid grid: %w", err)
	}

	c.logger.Info("geoid grid fetched", "width", g.Width, "height", g.Height)
	return &g, nil
}

// Resolve produces the lookup the compositor will use: a grid from the
// configured URL or file when one is available, otherwise the Zero fallback.
// Unavailability is non-fatal and logged exactly once.
func Resolve(ctx context.Context, url, path string, timeout time.Duration, logger *slog.Logger) Lookup {
	if path != "" {
		g, err := LoadFile(path)
		if err == nil {
			logger.Info("geoid grid loaded", "path", path, "width", g.Width, "height", g.Height)
			return g
		}
		logger.Warn("geoid grid file unavailable, falling back to ellipsoid-only mode", "path", path, "error", err)
		return Zero{}
	}

	if url != "" {
		g, err := NewClient(url, timeout, logger).FetchGrid(ctx)
		if err == nil {
			return g
		}
		logger.Warn("geoid service unavailable, falling back to ellipsoid-only mode", "url", url, "error", err)
		return Zero{}
	}

	logger.Info("no geoid source configured, using ellipsoid-only mode")
	return Zero{}
}
