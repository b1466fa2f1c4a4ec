package binary

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/watchthelight/hginstall/internal/errors"
)

const (
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "hginstall"
	// MaxArtifactSize caps the number of bytes read from a response body
	MaxArtifactSize int64 = 512 << 20
	// maxRedirects caps redirects followed by a single fetch
	maxRedirects = 10
)

// Downloader fetches release artifacts over HTTP. It makes exactly one
// attempt per call and keeps nothing on disk.
type Downloader struct {
	client    *http.Client
	userAgent string
	maxSize   int64
}

// NewDownloader creates a new downloader. An empty userAgent uses
// DefaultUserAgent. Timeouts come from the caller's context.
func NewDownloader(userAgent string) *Downloader {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Downloader{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxSize:   MaxArtifactSize,
	}
}

// Fetch downloads url into memory. A 404 is marked errors.ErrNotFound; every
// other failure, including an oversized body, is marked errors.ErrNetwork.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "create request"), errors.ErrNetwork)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "GET %s", url), errors.ErrNetwork)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.Mark(errors.Newf("GET %s: %s", url, resp.Status), errors.ErrNotFound)
	default:
		return nil, errors.Mark(errors.Newf("GET %s: unexpected status %s", url, resp.Status), errors.ErrNetwork)
	}

	if resp.ContentLength > d.maxSize {
		return nil, errors.Mark(
			errors.Newf("GET %s: body of %d bytes exceeds limit of %d", url, resp.ContentLength, d.maxSize),
			errors.ErrNetwork)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read body of %s", url), errors.ErrNetwork)
	}
	if int64(len(data)) > d.maxSize {
		return nil, errors.Mark(
			errors.Newf("GET %s: body exceeds limit of %d bytes", url, d.maxSize),
			errors.ErrNetwork)
	}

	return data, nil
}
