package catalog

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vanderheijden86/databrowser/pkg/debug"
	"github.com/vanderheijden86/databrowser/pkg/metrics"
	"github.com/vanderheijden86/databrowser/pkg/retry"
	"github.com/vanderheijden86/databrowser/pkg/version"
)

// DefaultBaseURL is the public data service endpoint.
const DefaultBaseURL = "https://cmsweb.cern.ch/phedex/datasvc"

// FetchError wraps a failed call with the phase it failed in.
type FetchError struct {
	Phase  string // "request", "status", "decode"
	API    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed: HTTP %d: %v", e.API, e.Phase, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s %s failed: %v", e.API, e.Phase, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Config holds client configuration.
type Config struct {
	BaseURL  string        // e.g. https://cmsweb.cern.ch/phedex/datasvc
	Format   string        // "json"
	Instance string        // "prod", "dev", "debug"
	Timeout  time.Duration // per HTTP attempt
	Retry    retry.Config
}

// Client calls the data service.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a new client, filling unset fields with defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Instance == "" {
		cfg.Instance = "prod"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// URL builds the request URL for api with the given query parameters.
func (c *Client) URL(api string, params url.Values) string {
	u := fmt.Sprintf("%s/%s/%s/%s", c.cfg.BaseURL, c.cfg.Format, c.cfg.Instance, api)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Fetch calls api with params and decodes the reply. 5xx replies and
// network errors are retried; other failures return a *FetchError at once.
// The response is not validated; see Response.Validate.
func (c *Client) Fetch(ctx context.Context, api string, params url.Values) (*Response, error) {
	target := c.URL(api, params)
	start := time.Now()
	defer func() { debug.LogTiming("catalog fetch "+target, time.Since(start)) }()
	defer metrics.Timer(metrics.CatalogFetch)()

	return retry.DoWithResult(ctx, c.cfg.Retry, func() (*Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, &FetchError{Phase: "request", API: api, Cause: err}
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Encoding", "gzip")
		req.Header.Set("User-Agent", "dbw/"+version.Version)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &FetchError{Phase: "request", API: api, Cause: ctx.Err()}
			}
			return nil, retry.Retryable(&FetchError{Phase: "request", API: api, Cause: err})
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			ferr := &FetchError{
				Phase:  "status",
				API:    api,
				Status: resp.StatusCode,
				Cause:  fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
			}
			if resp.StatusCode >= 500 {
				return nil, retry.Retryable(ferr)
			}
			return nil, ferr
		}

		var reader io.Reader = resp.Body
		if resp.Header.Get("Content-Encoding") == "gzip" {
			gr, err := gzip.NewReader(resp.Body)
			if err != nil {
				return nil, &FetchError{Phase: "decode", API: api, Cause: err}
			}
			defer gr.Close()
			reader = gr
		}

		out, err := Decode(reader)
		if err != nil {
			return nil, &FetchError{Phase: "decode", API: api, Cause: err}
		}
		return out, nil
	})
}
