package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/pkg/metrics"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
)

// DefaultMaxBodySize is the max size of a response read by [Client.Get].
const DefaultMaxBodySize = 64 << 20

// Client performs GET requests to remote servers.
type Client struct {
	httpClient  *http.Client
	maxBodySize int64
}

var _ camoview.Fetcher = (*Client)(nil)

// NewClient creates a new client. The timeout is applied to every request, 0 means
// no timeout. A nil transport means [http.DefaultTransport].
func NewClient(timeout time.Duration, transport http.RoundTripper) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxBodySize: DefaultMaxBodySize,
	}
}

// Get loads the whole response body. Responses with status code other than 200
// are returned as [*camoview.HTTPError].
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	now := time.Now()

	body, err := c.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, c.maxBodySize+1))
	if err != nil {
		metrics.RemoteErrors.Inc()
		return nil, fmt.Errorf("couldn't read response body: %w", err)
	}
	if int64(len(data)) > c.maxBodySize {
		metrics.RemoteErrors.Inc()
		return nil, fmt.Errorf("response body is larger than %d bytes", c.maxBodySize)
	}

	dur := time.Since(now)
	metrics.RemoteResponseTime.Observe(dur.Seconds())
	metrics.RemoteDownloadedSizes.Observe(float64(len(data)))

	rlog.Debugf("%q was loaded in %s, size: %d", url, dur, len(data))

	return data, nil
}

// Open performs a request and returns the response body. The caller must close it.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't prepare request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RemoteErrors.Inc()
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()

		metrics.RemoteErrors.Inc()

		bodyPrefix := make([]byte, 50)
		n, _ := io.ReadFull(resp.Body, bodyPrefix)
		bodyPrefix = bodyPrefix[:n]

		return nil, &camoview.HTTPError{
			URL:        url,
			StatusCode: resp.StatusCode,
			BodyPrefix: string(bodyPrefix),
		}
	}

	return resp.Body, nil
}
