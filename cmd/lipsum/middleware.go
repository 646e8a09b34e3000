package main

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// requestLogger logs each request and records its metrics. The route label is
// the chi pattern rather than the raw path, so corpus names do not create new
// series.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		s.logger.Info("Request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int64("duration_ms", duration.Milliseconds()),
			slog.String("client_ip", s.clientIP(r)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		s.metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.metrics.requestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
	})
}

// rateLimit enforces the per-client token bucket on generation endpoints.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(s.clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ipRateLimiter tracks one token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rateLimitEntry
	rateVal  rate.Limit
	burst    int
}

type rateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	rateVal := rate.Limit(rps)
	if rps <= 0 {
		rateVal = rate.Inf
	}
	return &ipRateLimiter{
		limiters: make(map[string]*rateLimitEntry),
		rateVal:  rateVal,
		burst:    max(burst, 1),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &rateLimitEntry{limiter: rate.NewLimiter(l.rateVal, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now

	if len(l.limiters) > 10000 {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > 10*time.Minute {
				delete(l.limiters, k)
			}
		}
	}

	return entry.limiter.Allow()
}

// trustedProxies holds the parsed proxy list from the server config.
type trustedProxies struct {
	cidrs []*net.IPNet
	ips   []net.IP
}

// newTrustedProxies parses entries that are either single IPs or CIDR ranges.
// Invalid entries are logged and skipped.
func newTrustedProxies(entries []string, logger *slog.Logger) *trustedProxies {
	p := &trustedProxies{}
	for _, entry := range entries {
		if ip := net.ParseIP(entry); ip != nil {
			p.ips = append(p.ips, ip)
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warn("Invalid trusted proxy entry", "entry", entry)
			continue
		}
		p.cidrs = append(p.cidrs, ipNet)
	}
	return p
}

func (p *trustedProxies) contains(ipAddr string) bool {
	parsedIP := net.ParseIP(ipAddr)
	if parsedIP == nil {
		return false
	}
	for _, ipNet := range p.cidrs {
		if ipNet.Contains(parsedIP) {
			return true
		}
	}
	for _, trustedIP := range p.ips {
		if trustedIP.Equal(parsedIP) {
			return true
		}
	}
	return false
}

// clientIP returns the address of the client. Forwarding headers are only
// honored when the direct peer is a trusted proxy.
func (s *Server) clientIP(r *http.Request) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !s.proxies.contains(remote) {
		return remote
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return strings.TrimSpace(ip)
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return remote
}
