package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/quillium/papersearch/pkg/model"
)

const (
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is requests per second against the metadata service.
	DefaultRateLimit = 10.0
)

// Client retrieves raw metadata records (and optionally extracted fulltext)
// from the upstream services. All requests share one rate limiter.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	metadataURL *url.URL
	fulltextURL *url.URL
	logger      *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit overrides the default request rate.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithFulltextEndpoint enables fulltext enrichment from the given service.
func WithFulltextEndpoint(endpoint string) Option {
	return func(c *Client) {
		u, err := url.Parse(endpoint)
		if err == nil {
			c.fulltextURL = u
		}
	}
}

// NewClient creates a metadata client for the given endpoint.
func NewClient(logger *logrus.Entry, metadataEndpoint string, opts ...Option) (*Client, error) {
	metadataURL, err := url.Parse(metadataEndpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch: invalid metadata endpoint: %w", err)
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		metadataURL: metadataURL,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DocMeta retrieves the metadata record for one version-scoped identifier.
// A versionless identifier returns the current version's record.
func (c *Client) DocMeta(ctx context.Context, id string) (model.DocMeta, error) {
	var meta model.DocMeta
	if err := c.getJSON(ctx, c.metadataPath("docmeta", id), id, &meta); err != nil {
		return model.DocMeta{}, err
	}
	return meta, nil
}

// DocMetaAll retrieves the metadata records for every version of a paper.
func (c *Client) DocMetaAll(ctx context.Context, paperID string) ([]model.DocMeta, error) {
	var metas []model.DocMeta
	if err := c.getJSON(ctx, c.metadataPath("docmeta", paperID, "versions"), paperID, &metas); err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, ErrNotFound
	}
	return metas, nil
}

// Fulltext retrieves extracted fulltext content for a paper. Fulltext is an
// optional enrichment: a missing record is reported as ErrNotFound and the
// caller indexes without it.
func (c *Client) Fulltext(ctx context.Context, paperID string) (string, error) {
	if c.fulltextURL == nil {
		return "", ErrNotFound
	}

	u := *c.fulltextURL
	u.Path = strings.TrimRight(u.Path, "/") + "/fulltext/" + url.PathEscape(paperID)

	body, err := c.get(ctx, u.String(), paperID)
	if err != nil {
		return "", err
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &Error{ID: paperID, Message: fmt.Sprintf("invalid fulltext payload: %v", err)}
	}
	return payload.Content, nil
}

func (c *Client) metadataPath(parts ...string) string {
	u := *c.metadataURL
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, rawurl, id string, out interface{}) error {
	body, err := c.get(ctx, rawurl, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{ID: id, Message: fmt.Sprintf("invalid metadata payload: %v", err)}
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawurl, id string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, &Error{ID: id, Message: err.Error()}
	}

	c.logger.Debugf("GET %s", rawurl)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{ID: id, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{ID: id, Message: err.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &Error{ID: id, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
}
