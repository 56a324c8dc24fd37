// Package fetch implements the paged external query API client used by the
// ingestion orchestrator: SoQL-style predicate construction, cursor
// pagination, retry with exponential backoff, and inter-page pacing.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

// Resource ids for the three datasets the orchestrator consumes.
const (
	ResourceCensus     = "az4n-8mr2"
	ResourceCrash      = "aayw-vxb3"
	ResourceInspection = "fx4q-ay7w"
)

const (
	pageLimit     = 50000
	pageTimeout   = 120 * time.Second
	pagePacing    = 500 * time.Millisecond
	maxRetries    = 3
	retryBaseWait = 2 * time.Second
)

// Client issues paged GET requests against the query API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a Client whose page-to-page pacing honors a >= 500ms
// minimum gap via a token-bucket limiter shared across every query the
// client issues, so concurrent per-batch fetches still draw from one
// global pacing budget.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = pageTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(pagePacing), 1),
	}
}

// Query describes one paged request.
type Query struct {
	Resource string
	Select   []string
	Where    string
	MaxRows  int // 0 means unbounded (until a short page)
}

// FetchAll pages through resource until a short page or MaxRows is reached,
// invoking onPage with each page's raw JSON objects. Every page attempt
// retries up to 3 times with exponential backoff (waits of 2s, 4s, 8s); a
// fourth failure surfaces ErrFetchFatal and aborts the whole fetch.
func (c *Client) FetchAll(ctx context.Context, q Query, onPage func([]map[string]any) error) (int, error) {
	offset := 0
	total := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return total, fmt.Errorf("fetch: pacing wait: %w", err)
		}

		page, err := c.fetchPageWithRetry(ctx, q, offset)
		if err != nil {
			return total, err
		}
		if q.MaxRows > 0 && total+len(page) > q.MaxRows {
			page = page[:q.MaxRows-total]
		}

		if len(page) > 0 {
			if err := onPage(page); err != nil {
				return total, fmt.Errorf("fetch: page callback: %w", err)
			}
		}
		total += len(page)
		offset += len(page)

		if len(page) < pageLimit {
			break
		}
		if q.MaxRows > 0 && total >= q.MaxRows {
			break
		}
	}
	return total, nil
}

func (c *Client) fetchPageWithRetry(ctx context.Context, q Query, offset int) ([]map[string]any, error) {
	b := &backoff.Backoff{Min: retryBaseWait, Factor: 2, Jitter: false}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := b.Duration()
			log.Warnf("retrying %s page offset=%d attempt=%d after %s: %v", q.Resource, offset, attempt, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		page, err := c.fetchPage(ctx, q, offset)
		if err == nil {
			return page, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s offset=%d: %v", model.ErrFetchFatal, q.Resource, offset, lastErr)
}

func (c *Client) fetchPage(ctx context.Context, q Query, offset int) ([]map[string]any, error) {
	u := fmt.Sprintf("%s/resource/%s.json", c.baseURL, q.Resource)
	v := url.Values{}
	if len(q.Select) > 0 {
		v.Set("$select", strings.Join(q.Select, ","))
	}
	if q.Where != "" {
		v.Set("$where", q.Where)
	}
	v.Set("$order", ":id")
	v.Set("$limit", strconv.Itoa(pageLimit))
	v.Set("$offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", model.ErrFetchTransient, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFetchTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", model.ErrFetchTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", model.ErrFetchFatal, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", model.ErrFetchTransient, err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode page: %v", model.ErrFetchFatal, err)
	}
	return rows, nil
}
