package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
	"github.com/custodia-labs/fundlink/internal/logger"
)

// Ensure Scraper implements the interface.
var _ driven.Scraper = (*Scraper)(nil)

// Scraper defaults.
const (
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 500 * time.Millisecond

	// MaxBodySize caps how much of a page is read.
	MaxBodySize = 5 << 20
)

// AMCSources lists the pages of one asset management company.
type AMCSources struct {
	Name  string   `json:"name"`
	AMCID string   `json:"amc_id"`
	URLs  []string `json:"urls"`
}

// SourceList is the scraper input file.
type SourceList struct {
	AMCs []AMCSources `json:"amcs"`
}

// URLCount returns the number of URLs across all AMCs.
func (l SourceList) URLCount() int {
	n := 0
	for _, a := range l.AMCs {
		n += len(a.URLs)
	}
	return n
}

// LoadSourceList reads a source list file.
func LoadSourceList(path string) (SourceList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceList{}, fmt.Errorf("read source list: %w", err)
	}
	var list SourceList
	if err := json.Unmarshal(data, &list); err != nil {
		return SourceList{}, fmt.Errorf("parse source list %s: %w: %w", path, domain.ErrInvalidInput, err)
	}
	return list, nil
}

// Scraper fetches every page of a SourceList. It only fetches the listed
// URLs and never follows links.
type Scraper struct {
	mu          sync.RWMutex
	list        SourceList
	path        string
	client      *http.Client
	limiter     *RateLimiter
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithScrapeClient sets the HTTP client.
func WithScrapeClient(c *http.Client) ScraperOption {
	return func(s *Scraper) {
		if c != nil {
			s.client = c
		}
	}
}

// WithScrapeRate throttles fetches to perSecond requests per second.
func WithScrapeRate(perSecond float64) ScraperOption {
	return func(s *Scraper) {
		s.limiter = NewRateLimiter(perSecond)
	}
}

// WithRetries sets the attempts per URL and the initial backoff, which
// doubles after each failed attempt.
func WithRetries(attempts int, backoff time.Duration) ScraperOption {
	return func(s *Scraper) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

// WithScrapeClock overrides the time source for scraped_at.
func WithScrapeClock(fn func() time.Time) ScraperOption {
	return func(s *Scraper) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewScraper creates a scraper over list.
func NewScraper(list SourceList, timeout time.Duration, opts ...ScraperOption) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Scraper{
		list:        list,
		client:      &http.Client{Timeout: timeout},
		limiter:     NewRateLimiter(0),
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultRetryBackoff,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFileScraper creates a scraper that rereads the source list at path
// at the start of every Scrape, so edits apply to the next run.
func NewFileScraper(path string, timeout time.Duration, opts ...ScraperOption) *Scraper {
	s := NewScraper(SourceList{}, timeout, opts...)
	s.path = path
	return s
}

// URLCount returns how many URLs a Scrape call will attempt. For a file
// scraper this is the count from the most recent load.
func (s *Scraper) URLCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.URLCount()
}

// Scrape fetches every listed URL in order. Failed URLs are reported in
// an errors.Join alongside the documents that were fetched.
func (s *Scraper) Scrape(ctx context.Context) ([]domain.ScrapedDocument, error) {
	list, err := s.sources()
	if err != nil {
		return nil, err
	}

	docs := make([]domain.ScrapedDocument, 0, list.URLCount())
	var errs []error

	for _, amc := range list.AMCs {
		logger.Info("Scraping %s (%d URLs)", amc.Name, len(amc.URLs))
		for _, url := range amc.URLs {
			if err := ctx.Err(); err != nil {
				return docs, err
			}
			body, err := s.fetch(ctx, url)
			if err != nil {
				logger.Warn("scrape %s: %v", url, err)
				errs = append(errs, fmt.Errorf("%s: %w", url, err))
				continue
			}
			docs = append(docs, domain.ScrapedDocument{
				URL:       url,
				AMCName:   amc.Name,
				AMCID:     amc.AMCID,
				Title:     extractTitle(body, url),
				Content:   body,
				ScrapedAt: s.now().UTC(),
			})
		}
	}

	return docs, errors.Join(errs...)
}

func (s *Scraper) sources() (SourceList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path != "" {
		list, err := LoadSourceList(s.path)
		if err != nil {
			s.list = SourceList{}
			return SourceList{}, err
		}
		s.list = list
	}
	return s.list, nil
}

// statusError is a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

func (s *Scraper) fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	wait := s.backoff
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			logger.Debug("retrying %s (attempt %d/%d)", url, attempt, s.maxAttempts)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
			wait *= 2
		}

		body, err := s.get(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

func (s *Scraper) get(ctx context.Context, url string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	s.limiter.Backoff(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &statusError{code: resp.StatusCode}
	}

	var b strings.Builder
	if _, err := io.Copy(&b, io.LimitReader(resp.Body, MaxBodySize)); err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return b.String(), nil
}
