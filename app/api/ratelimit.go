package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 3 * time.Minute
	limiterMaxIdle         = 5 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rps      rate.Limit
	burst    int
	trusted  []*net.IPNet
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows rps requests per second per IP with bursts up to burst.
// X-Forwarded-For is only read from peers inside trusted.
func NewRateLimiter(rps float64, burst int, trusted []*net.IPNet) *RateLimiter {
	l := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		trusted:  trusted,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *RateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = entry
	}
	now := l.now()
	entry.lastSeen = now
	l.mu.Unlock()
	return entry.limiter.AllowN(now, 1)
}

func (l *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup drops limiters of clients that went quiet.
func (l *RateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.limiters {
		if l.now().Sub(entry.lastSeen) > limiterMaxIdle {
			delete(l.limiters, ip)
		}
	}
}

func (l *RateLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Limit rejects requests over the per-IP rate with 429.
func (l *RateLimiter) Limit(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !l.Allow(l.clientIP(ctx)) {
			ctx.Response.Header.Set("Retry-After", "60")
			writeJSON(ctx, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next(ctx)
	}
}

// ParseTrustedProxies turns CIDRs (or bare IPs) into networks.
func ParseTrustedProxies(specs []string) ([]*net.IPNet, error) {
	var networks []*net.IPNet
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if !strings.Contains(spec, "/") {
			if ip := net.ParseIP(spec); ip != nil && ip.To4() != nil {
				spec += "/32"
			} else {
				spec += "/128"
			}
		}
		_, network, err := net.ParseCIDR(spec)
		if err != nil {
			return nil, fmt.Errorf("ParseTrustedProxies: %w", err)
		}
		networks = append(networks, network)
	}
	return networks, nil
}

func (l *RateLimiter) isTrusted(ip net.IP) bool {
	for _, network := range l.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP is the peer address unless the peer is a trusted proxy, in which case it is
// the right-most X-Forwarded-For hop that is not itself a trusted proxy.
func (l *RateLimiter) clientIP(ctx *fasthttp.RequestCtx) string {
	remote := ctx.RemoteIP()
	if !l.isTrusted(remote) {
		return remote.String()
	}
	hops := strings.Split(string(ctx.Request.Header.Peek("X-Forwarded-For")), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			break
		}
		if !l.isTrusted(ip) {
			return ip.String()
		}
	}
	return remote.String()
}
