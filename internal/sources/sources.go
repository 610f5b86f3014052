// Package sources implements per-source crawlers for the monitored
// regulators. Each crawler discovers candidate documents, derives their
// canonical ids, and hands new ones to the sink; already-known ids are
// skipped without a fetch.
package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/regwatch/regwatch/internal/domain"
)

// Crawler discovers documents from a single source.
type Crawler interface {
	// Name returns the source tag (e.g. FBR).
	Name() string
	// Crawl performs one discovery pass. force bypasses page-level
	// change detection where the source supports it. It returns the
	// number of rows seen on the source, new or not.
	Crawl(ctx context.Context, force bool) (int, error)
}

// Sink receives discovered documents. *store.Store satisfies it.
type Sink interface {
	Exists(ctx context.Context, canonicalID string) (bool, error)
	UpsertWithContent(ctx context.Context, doc *domain.Document, content []byte) error
	UpsertMetadataOnly(ctx context.Context, doc *domain.Document) error
}

// Config holds crawl politeness and recency settings shared by all
// sources.
type Config struct {
	UserAgent   string        `mapstructure:"user_agent"   yaml:"user_agent"`
	Delay       time.Duration `mapstructure:"delay"        yaml:"delay"`
	Parallelism int           `mapstructure:"parallelism"  yaml:"parallelism"`
	// RecencyDays bounds how far back discovery reaches. Documents
	// with a parsed date older than the cutoff are ignored; undated
	// documents always pass.
	RecencyDays int `mapstructure:"recency_days" yaml:"recency_days"`
	// RequestTimeout bounds a single HTTP request.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

const (
	defaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	defaultDelay          = 3 * time.Second
	defaultParallelism    = 2
	defaultRecencyDays    = 180
	defaultRequestTimeout = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Delay <= 0 {
		c.Delay = defaultDelay
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaultParallelism
	}
	if c.RecencyDays <= 0 {
		c.RecencyDays = defaultRecencyDays
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	return c
}

// cutoff returns the oldest acceptable issue date.
func (c Config) cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.RecencyDays)
}

// newCollector builds a collector with the shared politeness settings,
// bound to ctx: no request outlives the context deadline, and no new
// request starts once the context is done.
func newCollector(ctx context.Context, cfg Config, allowedDomains ...string) (*colly.Collector, error) {
	opts := []colly.CollectorOption{
		colly.UserAgent(cfg.UserAgent),
		colly.Async(true),
	}
	if len(allowedDomains) > 0 {
		opts = append(opts, colly.AllowedDomains(allowedDomains...))
	}
	c := colly.NewCollector(opts...)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       cfg.Delay,
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("failed to set rate limit: %w", err)
	}

	timeout := cfg.RequestTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	c.SetRequestTimeout(timeout)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	return c, nil
}

// tooOld reports whether a parsed date falls before the cutoff. Undated
// entries are never too old; dropping them would hide exactly the
// documents whose dates the source failed to publish.
func tooOld(issueDate *time.Time, cutoff time.Time) bool {
	return issueDate != nil && issueDate.Before(cutoff)
}

func truncateTitle(title string) string {
	if runes := []rune(title); len(runes) > 200 {
		return string(runes[:200])
	}
	return title
}
