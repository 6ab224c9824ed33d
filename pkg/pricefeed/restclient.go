package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketwatch/internal/market"
)

type RESTClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewRESTClient(endpoint string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetTickers fetches the full ticker list, or only symbols when given.
func (c *RESTClient) GetTickers(ctx context.Context, symbols ...string) ([]Ticker, error) {
	endpoint := c.endpoint
	if len(symbols) > 0 {
		q := `["` + strings.Join(symbols, `","`) + `"]`
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + "symbols=" + url.QueryEscape(q)
	}

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("price feed error %d: %s", apiErr.Code, apiErr.Msg)
		}
		return nil, fmt.Errorf("price feed status %d: %s", resp.StatusCode, body)
	}

	var tickers []Ticker
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return tickers, nil
}

// GetPrices fetches tickers and returns the parsed prices of symbols, in the
// order the feed lists them.
func (c *RESTClient) GetPrices(ctx context.Context, symbols []string) ([]market.ReferencePrice, error) {
	tickers, err := c.GetTickers(ctx, symbols...)
	if err != nil {
		return nil, err
	}
	return ParseTickers(tickers, symbols, time.Now()), nil
}
