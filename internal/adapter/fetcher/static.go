package fetcher

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// StaticFetcher downloads page HTML without executing scripts.
type StaticFetcher struct {
	client *resty.Client
}

func NewStaticFetcher(client *resty.Client) *StaticFetcher {
	return &StaticFetcher{client: client}
}

// Fetch returns the body of a successful GET. Any non-2xx status is an error.
func (f *StaticFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml,*/*;q=0.8").
		Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode())
	}
	return resp.String(), nil
}
