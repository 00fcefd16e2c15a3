// Package api fetches entity lists from the project-management backend and
// normalizes them into pipeline records.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// DefaultTimeout bounds a single list request.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 32 << 20

var (
	ErrNoBaseURL     = errors.New("api url not configured")
	ErrNoProject     = errors.New("project not configured")
	ErrRequestFailed = errors.New("request failed")
	ErrUnauthorized  = errors.New("unauthorized")
)

// StatusError is returned for non-2xx responses. It matches ErrRequestFailed
// and, for 401/403, ErrUnauthorized.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}

	return msg
}

func (e *StatusError) Unwrap() []error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return []error{ErrRequestFailed, ErrUnauthorized}
	}

	return []error{ErrRequestFailed}
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Project    string
	Token      string
	HTTPClient *http.Client
	Catalog    *entity.Catalog
	Logger     *zap.Logger
}

// Client is safe for concurrent use. Identical in-flight requests share one
// round trip.
type Client struct {
	base    *url.URL
	project string
	token   string
	http    *http.Client
	catalog *entity.Catalog
	logger  *zap.Logger
	flight  singleflight.Group

	mu       sync.Mutex
	requests int
}

// New validates opts and returns a client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, ErrNoBaseURL
	}

	if strings.TrimSpace(opts.Project) == "" {
		return nil, ErrNoProject
	}

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("parse api url: unsupported scheme %q", base.Scheme)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = entity.NewCatalog(entity.DefaultRules())
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		base:    base,
		project: opts.Project,
		token:   opts.Token,
		http:    httpClient,
		catalog: catalog,
		logger:  logger.Named("api"),
	}, nil
}

// URL returns the list endpoint for kind.
func (c *Client) URL(kind entity.Kind) string {
	return c.base.JoinPath("projects", c.project, string(kind)).String()
}

// Requests reports how many HTTP round trips the client has made.
func (c *Client) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.requests
}

// Raw returns the undecoded list payload for kind.
func (c *Client) Raw(ctx context.Context, kind entity.Kind) ([]byte, error) {
	endpoint := c.URL(kind)

	v, err, shared := c.flight.Do(endpoint, func() (any, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.logger.Debug("shared in-flight request", zap.String("url", endpoint))
	}

	return v.([]byte), nil
}

// Fetch returns the records of kind. Each caller gets its own records.
func (c *Client) Fetch(ctx context.Context, kind entity.Kind) ([]record.Record, error) {
	e, err := c.catalog.Get(kind)
	if err != nil {
		return nil, err
	}

	body, err := c.Raw(ctx, kind)
	if err != nil {
		return nil, err
	}

	records, err := e.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}

	c.logger.Debug("fetched", zap.String("kind", string(kind)), zap.Int("records", len(records)))

	return records, nil
}

// FetchAll fetches several kinds concurrently. The first failure cancels the
// rest.
func (c *Client) FetchAll(ctx context.Context, kinds ...entity.Kind) (map[entity.Kind][]record.Record, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex

	out := make(map[entity.Kind][]record.Record, len(kinds))

	for _, kind := range kinds {
		g.Go(func() error {
			records, err := c.Fetch(ctx, kind)
			if err != nil {
				return err
			}

			mu.Lock()
			out[kind] = records
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.mu.Lock()
	c.requests++
	c.mu.Unlock()

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}

	c.logger.Debug("request",
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: snippet(body)}
	}

	return body, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}

	return s
}
