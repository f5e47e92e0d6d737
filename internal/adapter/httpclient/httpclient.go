package httpclient

import (
	"time"

	"quiz-pilot/internal/telemetry"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Options configures an outbound HTTP client.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
}

// New returns a traced resty client shared by the fetch, download, transcribe
// and submit adapters.
func New(opts Options, log *zap.Logger) *resty.Client {
	client := resty.New()
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))

	telemetry.InstrumentResty(client, log)
	return client
}
