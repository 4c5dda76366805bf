package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// Ensure Prober implements the interface.
var _ driven.URLProber = (*Prober)(nil)

// UserAgent identifies fundlink to the sites it fetches.
const UserAgent = "fundlink/1.0 (+https://github.com/custodia-labs/fundlink)"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// Prober checks URL reachability with HEAD, falling back to GET for
// servers that do not implement HEAD.
type Prober struct {
	client  *http.Client
	limiter *RateLimiter
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProbeClient sets the HTTP client.
func WithProbeClient(c *http.Client) ProberOption {
	return func(p *Prober) {
		if c != nil {
			p.client = c
		}
	}
}

// WithProbeRate throttles probes to perSecond requests per second.
func WithProbeRate(perSecond float64) ProberOption {
	return func(p *Prober) {
		p.limiter = NewRateLimiter(perSecond)
	}
}

// NewProber creates a prober. Redirects are followed, so a moved page
// counts as reachable if its destination is.
func NewProber(timeout time.Duration, opts ...ProberOption) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Prober{
		client:  &http.Client{Timeout: timeout},
		limiter: NewRateLimiter(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns nil if url answered with a 2xx status.
func (p *Prober) Probe(ctx context.Context, url string) error {
	status, err := p.do(ctx, http.MethodHead, url)
	if err != nil {
		return err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		status, err = p.do(ctx, http.MethodGet, url)
		if err != nil {
			return err
		}
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("probe %s: status %d", url, status)
	}
	return nil
}

func (p *Prober) do(ctx context.Context, method, url string) (int, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", url, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	p.limiter.Backoff(resp)
	return resp.StatusCode, nil
}
