package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements per-host rate limiting for remote documents.
// Local file sources are never limited.
type Limiter struct {
	hosts        map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		hosts:        make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until the source's host may be contacted. The crawl delay,
// when positive, is added after the rate limit clears.
func (l *Limiter) Wait(ctx context.Context, source string, crawlDelay time.Duration) error {
	host, err := hostOf(source)
	if err != nil {
		return err
	}
	if host == "" {
		return nil
	}

	if err := l.forHost(host).Wait(ctx); err != nil {
		return err
	}

	if crawlDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(crawlDelay):
		}
	}
	return nil
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(source string) bool {
	host, err := hostOf(source)
	if err != nil {
		return false
	}
	if host == "" {
		return true
	}
	return l.forHost(host).Allow()
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.hosts[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.hosts[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.hosts[host] = limiter
	return limiter
}

// SetHostRate sets a custom rate limit for a specific host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.hosts[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// hostOf returns the host of an http(s) source, or "" for a file path
func hostOf(source string) (string, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return "", nil
	}
	parsed, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse source: %w", err)
	}
	return parsed.Host, nil
}
