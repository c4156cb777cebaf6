package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ohbang/internal/domain"
	"ohbang/internal/models"

	"github.com/rs/zerolog"
)

// maxBodySize caps the menu document size.
const maxBodySize = 8 << 20

// Client fetches the menu document over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewClient(url string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// document keeps Menu as a pointer so a missing key is distinguishable
// from an empty list.
type document struct {
	Menu *[]models.MenuItem `json:"menu"`
}

// FetchMenu downloads and decodes the full menu.
func (c *Client) FetchMenu(ctx context.Context) ([]models.MenuItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, fmt.Errorf("%w: %d", domain.ErrStatus, resp.StatusCode)
	}

	var doc document
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&doc); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if doc.Menu == nil {
		return nil, fmt.Errorf("%w: missing \"menu\" key", domain.ErrDecode)
	}

	c.logger.Debug().
		Int("items", len(*doc.Menu)).
		Dur("took", time.Since(start)).
		Msg("menu fetched")

	return *doc.Menu, nil
}
