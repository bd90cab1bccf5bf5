package adapters

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/new/app"
	"github.com/pkg/errors"
)

const (
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultMaxBodyBytes = 10 << 20
	userAgent           = "feedloader"
)

var ErrBodyTooLarge = errors.New("response body too large")

// HTTPClient performs GET requests on their own goroutine. Cancelling the
// returned task aborts the request.
// Bodies larger than maxBodyBytes fail with ErrBodyTooLarge.
type HTTPClient struct {
	client       *http.Client
	maxBodyBytes int64
}

func NewHTTPClient(timeout time.Duration, maxBodyBytes int64) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	return &HTTPClient{client: &http.Client{Timeout: timeout}, maxBodyBytes: maxBodyBytes}
}

func (c *HTTPClient) Get(url string, completion func(loader.Result[app.HTTPResponse])) loader.Task {
	return loader.Go(func(ctx context.Context) (app.HTTPResponse, error) {
		return c.get(ctx, url)
	}, completion)
}

func (c *HTTPClient) get(ctx context.Context, url string) (app.HTTPResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return app.HTTPResponse{}, errors.Wrap(err, "error creating the request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return app.HTTPResponse{}, errors.Wrap(err, "error performing the request")
	}
	defer resp.Body.Close() // not much we can do here

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return app.HTTPResponse{}, errors.Wrap(err, "error reading the response body")
	}

	if int64(len(body)) > c.maxBodyBytes {
		return app.HTTPResponse{}, errors.Wrapf(ErrBodyTooLarge, "more than %d bytes from %s", c.maxBodyBytes, url)
	}

	return app.HTTPResponse{StatusCode: resp.StatusCode, Body: body}, nil
}
