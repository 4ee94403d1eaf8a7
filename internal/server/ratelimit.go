// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package server

import (
	"cmp"
	"context"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/danielgtaylor/huma/v2"
)

const (
	cleanupInterval = 5 * time.Minute
	staleThreshold  = 10 * time.Minute
)

// RateLimitConfig configures the per-IP chat limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained chat rate per client IP. Zero
	// disables limiting.
	RequestsPerMinute int
	// Burst is the bucket size per client IP.
	Burst int
	// MaxVisitors caps the number of tracked IPs. Default: 10000.
	MaxVisitors int
}

func (c *RateLimitConfig) validate() error {
	if c.RequestsPerMinute < 0 {
		return darcyerr.Errorf(darcyerr.CodeServerConfigInvalid,
			"rate limit requests per minute must not be negative (got %d)", c.RequestsPerMinute)
	}
	if c.RequestsPerMinute > 0 && c.Burst <= 0 {
		return darcyerr.Errorf(darcyerr.CodeServerConfigInvalid,
			"rate limit burst must be positive when requests per minute is set (got burst=%d, rpm=%d)",
			c.Burst, c.RequestsPerMinute)
	}
	if c.MaxVisitors < 0 {
		return darcyerr.Errorf(darcyerr.CodeServerConfigInvalid,
			"rate limit max visitors must not be negative (got %d)", c.MaxVisitors)
	}
	if c.MaxVisitors == 0 {
		c.MaxVisitors = 10000
	}
	return nil
}

type visitor struct {
	tokens     float64
	lastSeen   time.Time
	lastRefill time.Time
}

// rateLimiter is a token bucket per client IP.
type rateLimiter struct {
	cfg      RateLimitConfig
	nowFunc  func() time.Time
	mu       sync.Mutex
	visitors map[string]*visitor
}

// newRateLimiter returns nil when limiting is disabled. A nil limiter
// allows every request.
func newRateLimiter(cfg RateLimitConfig, done <-chan struct{}) (*rateLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute == 0 {
		return nil, nil
	}

	l := &rateLimiter{
		cfg:      cfg,
		nowFunc:  time.Now,
		visitors: make(map[string]*visitor),
	}
	go l.cleanupLoop(done)
	return l, nil
}

func (l *rateLimiter) cleanupLoop(done <-chan struct{}) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-done:
			return
		}
	}
}

// cleanup drops stale visitors, then evicts the oldest ones above the cap.
func (l *rateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	type seen struct {
		ip       string
		lastSeen time.Time
	}
	live := make([]seen, 0, len(l.visitors))
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > staleThreshold {
			delete(l.visitors, ip)
			continue
		}
		live = append(live, seen{ip: ip, lastSeen: v.lastSeen})
	}

	if len(live) <= l.cfg.MaxVisitors {
		return
	}
	slices.SortFunc(live, func(a, b seen) int { return a.lastSeen.Compare(b.lastSeen) })
	evict := len(live) - l.cfg.MaxVisitors
	for _, s := range live[:evict] {
		delete(l.visitors, s.ip)
	}
	slog.Warn("rate limiter visitor cap enforced",
		"evicted", evict, "max_visitors", l.cfg.MaxVisitors, "remaining", len(l.visitors))
}

// allow takes one token from ip's bucket.
func (l *rateLimiter) allow(ip string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{tokens: float64(l.cfg.Burst), lastRefill: now}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	perSecond := float64(l.cfg.RequestsPerMinute) / 60.0
	v.tokens = min(float64(l.cfg.Burst), v.tokens+now.Sub(v.lastRefill).Seconds()*perSecond)
	v.lastRefill = now

	if v.tokens < 1 {
		return false
	}
	v.tokens--
	return true
}

// retryAfter is the whole number of seconds until ip earns its next token.
func (l *rateLimiter) retryAfter(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		return 1
	}
	perSecond := float64(l.cfg.RequestsPerMinute) / 60.0
	return cmp.Or(int((1-v.tokens)/perSecond+0.999), 1)
}

type clientIPContextKey struct{}

// clientIPContextMiddleware stores the client IP (after middleware.RealIP)
// for huma handlers, which only see the request context.
func clientIPContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPContextKey{}, clientIP(r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func clientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func (s *Server) checkChatLimit(ctx context.Context, endpoint string) error {
	if s.limiter == nil {
		return nil
	}
	ip := cmp.Or(clientIPFromContext(ctx), "unknown")
	if s.limiter.allow(ip) {
		return nil
	}
	slog.Warn("chat rate limit exceeded", "endpoint", endpoint, "ip", ip)
	err := huma.NewError(http.StatusTooManyRequests, "Muitas perguntas! Aguarde um momento antes de tentar novamente.")
	return huma.ErrorWithHeaders(err, http.Header{"Retry-After": []string{strconv.Itoa(s.limiter.retryAfter(ip))}})
}
