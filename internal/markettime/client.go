// Package markettime fetches orders from the MarketTime public API. The
// orders/get endpoint is a POST with offset/limit paging and a reported
// total; page requests retry a bounded number of times with linearly
// increasing backoff.
package markettime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/Pkirch1211/mt-shopify-sync/internal/config"
	"github.com/Pkirch1211/mt-shopify-sync/internal/domain"
)

const defaultBaseURL = "https://publicapi.markettime.com"

// retrySleep is the backoff step: attempt N waits N*retrySleep.
const retrySleep = 2 * time.Second

// Client calls the MarketTime public API for one tenant.
type Client struct {
	baseURL     string
	apiKey      string
	whoAmI      string
	pageLimit   int
	retryCount  int
	backoffStep time.Duration
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a MarketTime API client
func NewClient(cfg config.MarketTimeConfig, retryCount int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pageLimit := cfg.PageLimit
	if pageLimit <= 0 {
		pageLimit = 50
	}
	if retryCount <= 0 {
		retryCount = 3
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      cfg.APIKey,
		whoAmI:      cfg.WhoAmI,
		pageLimit:   pageLimit,
		retryCount:  retryCount,
		backoffStep: retrySleep,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		logger:      logger,
	}
}

// ordersPage is one page of the orders/get response.
type ordersPage struct {
	Response []domain.SourceOrder `json:"response"`
	Total    *int                 `json:"total"`
}

// FetchAllOrders pages through orders/get until a page comes back empty
// or the cumulative count reaches the API-reported total. Rows are
// de-duplicated by recordID across pages (the endpoint can repeat rows
// near page boundaries).
func (c *Client) FetchAllOrders(ctx context.Context) ([]domain.SourceOrder, error) {
	url := fmt.Sprintf("%s/mtpublic/api/v1/%s/orders/get", c.baseURL, c.whoAmI)

	var (
		all           []domain.SourceOrder
		totalReported = -1
		offset        = 0
		seen          = map[string]struct{}{}
	)

	for {
		page, err := c.fetchPage(ctx, url, offset)
		if err != nil {
			return nil, fmt.Errorf("orders/get offset=%d: %w", offset, err)
		}
		if page.Total != nil {
			totalReported = *page.Total
		}
		if len(page.Response) == 0 {
			c.logger.Info("orders/get returned empty page, stopping",
				zap.Int("offset", offset), zap.Int("limit", c.pageLimit))
			break
		}

		added := 0
		for _, o := range page.Response {
			key := o.RecordID.String()
			if key == "" {
				key = o.PONumber + "|" + o.RetailerID.String() + "|" + o.OrderDate
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, o)
			added++
		}

		c.logger.Info("orders/get page",
			zap.Int("offset", offset),
			zap.Int("limit", c.pageLimit),
			zap.Int("fetched", len(page.Response)),
			zap.Int("new", added),
			zap.Int("total_so_far", len(all)),
			zap.Int("api_total", totalReported),
		)

		offset += c.pageLimit
		if totalReported >= 0 && len(all) >= totalReported {
			c.logger.Info("orders/get reached API total, stopping", zap.Int("api_total", totalReported))
			break
		}
	}

	c.logDateSpan(all)
	return all, nil
}

// fetchPage POSTs one page with retries. Any transport failure or non-2xx
// status is retried with linear backoff until the attempt budget runs out.
func (c *Client) fetchPage(ctx context.Context, url string, offset int) (*ordersPage, error) {
	var page ordersPage

	backoff := retry.WithMaxRetries(uint64(c.retryCount-1), linearBackoff(c.backoffStep))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		pageURL := fmt.Sprintf("%s?offset=%d&limit=%d", url, offset, c.pageLimit)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, pageURL, bytes.NewBufferString("[]"))
		if err != nil {
			return err
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("orders/get request failed, retrying", zap.Int("offset", offset), zap.Error(err))
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Warn("orders/get HTTP error, retrying",
				zap.Int("offset", offset),
				zap.Int("status", resp.StatusCode),
				zap.String("body", truncate(string(body), 400)),
			)
			return retry.RetryableError(fmt.Errorf("HTTP %d", resp.StatusCode))
		}

		page = ordersPage{}
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("decode orders/get response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) logDateSpan(orders []domain.SourceOrder) {
	if len(orders) == 0 {
		return
	}
	var minDate, maxDate string
	for _, o := range orders {
		d := o.OrderDate
		if d == "" {
			continue
		}
		if minDate == "" || d < minDate {
			minDate = d
		}
		if d > maxDate {
			maxDate = d
		}
	}
	c.logger.Info("MarketTime fetch complete",
		zap.Int("rows", len(orders)),
		zap.String("date_min", minDate),
		zap.String("date_max", maxDate),
	)
}

// linearBackoff waits step, 2*step, 3*step, ... between attempts.
func linearBackoff(step time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * step, false
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
