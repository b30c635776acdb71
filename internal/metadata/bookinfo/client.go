package bookinfo

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/ratelimit"
)

const (
	// Rate limit: 2 requests per second against the catalog, burst of 5.
	defaultRPS   = 2.0
	defaultBurst = 5

	defaultTimeout = 30 * time.Second

	// The catalog refuses change lists for windows beyond this.
	maxChangedWindow = 14 * 24 * time.Hour

	// One limiter key; the catalog rate-limits per client, not per route.
	limiterKey = "catalog"
)

// Client is a rate-limited catalog client implementing Provider.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a catalog client against the given base URL.
func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// GetAuthorInfo implements Provider.
func (c *Client) GetAuthorInfo(ctx context.Context, foreignAuthorID string) (*domain.Author, []domain.AuthorMetadata, error) {
	if foreignAuthorID == "" {
		return nil, nil, wrapError("getAuthor", foreignAuthorID, ErrInvalidID)
	}

	body, err := c.doRequest(ctx, "/v1/author/"+url.PathEscape(foreignAuthorID), nil)
	if err != nil {
		return nil, nil, wrapError("getAuthor", foreignAuthorID, err)
	}

	var resource AuthorResource
	if err := json.Unmarshal(body, &resource); err != nil {
		return nil, nil, wrapError("getAuthor", foreignAuthorID, fmt.Errorf("parse response: %w", err))
	}

	author := resource.toAuthor()
	metadata := []domain.AuthorMetadata{author.Metadata}
	return author, metadata, nil
}

// GetBookInfo implements Provider.
func (c *Client) GetBookInfo(ctx context.Context, foreignBookID string) (string, *domain.Book, []domain.AuthorMetadata, error) {
	if foreignBookID == "" {
		return "", nil, nil, wrapError("getBook", foreignBookID, ErrInvalidID)
	}

	body, err := c.doRequest(ctx, "/v1/book/"+url.PathEscape(foreignBookID), nil)
	if err != nil {
		return "", nil, nil, wrapError("getBook", foreignBookID, err)
	}

	var resp BookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, nil, wrapError("getBook", foreignBookID, fmt.Errorf("parse response: %w", err))
	}

	book := resp.Work.toBook()
	metadata := make([]domain.AuthorMetadata, 0, len(resp.Authors))
	for i := range resp.Authors {
		metadata = append(metadata, resp.Authors[i].toMetadata())
	}
	return resp.Work.ForeignAuthorID, book, metadata, nil
}

// GetChangedAuthors implements Provider. Returns nil (no error) when the
// window is too large or the catalog truncated the list; the caller then
// falls back to staleness checks.
func (c *Client) GetChangedAuthors(ctx context.Context, since time.Time) ([]string, error) {
	if time.Since(since) > maxChangedWindow {
		return nil, nil
	}

	query := url.Values{}
	query.Set("since", since.UTC().Format(time.RFC3339))

	body, err := c.doRequest(ctx, "/v1/author/changed", query)
	if err != nil {
		return nil, wrapError("getChanged", "", err)
	}

	var resp ChangedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("getChanged", "", fmt.Errorf("parse response: %w", err))
	}
	if resp.Limited {
		return nil, nil
	}
	if resp.IDs == nil {
		resp.IDs = []string{}
	}
	return resp.IDs, nil
}

// doRequest executes a GET with rate limiting and maps HTTP status codes to
// the package sentinels.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Shelfmark/1.0")

	c.logger.Debug("catalog request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
