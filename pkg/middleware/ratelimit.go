package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/httputil"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per client IP and forgets idle clients.
type limiterStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func newLimiterStore(rps float64, burst int, ttl time.Duration) *limiterStore {
	return &limiterStore{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *limiterStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (s *limiterStore) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.ttl {
			delete(s.visitors, key)
		}
	}
}

// RateLimiter is per-IP token bucket middleware. Stop releases its janitor.
type RateLimiter struct {
	store   *limiterStore
	proxies *ProxyTrust
	logger  *slog.Logger
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. Clients are keyed by proxies.ClientIP; a nil proxies keys by peer.
func NewRateLimiter(rps float64, burst int, proxies *ProxyTrust, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		store:   newLimiterStore(rps, burst, 3*time.Minute),
		proxies: proxies,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(rl.store.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.store.evictIdle()
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Handler returns the middleware, answering 429 when a client exceeds its budget.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.proxies.ClientIP(r)
		if !rl.store.allow(ip) {
			rl.logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			httputil.WriteError(w, r, apperrors.RateLimited("Too many requests, please try again later"), rl.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ProxyTrust resolves the client address of a request. Forwarding headers
// are believed only when the connection comes from a trusted proxy.
type ProxyTrust struct {
	prefixes []netip.Prefix
}

// NewProxyTrust trusts peers inside cidrs. Entries that do not parse are
// logged and ignored.
func NewProxyTrust(cidrs []string, logger *slog.Logger) *ProxyTrust {
	return &ProxyTrust{prefixes: parsePrefixes(cidrs, "ignoring invalid trusted proxy prefix", logger)}
}

func (t *ProxyTrust) trusted(addr netip.Addr) bool {
	if t == nil {
		return false
	}
	return containsAddr(t.prefixes, addr)
}

// ClientIP returns the connection's remote address unless that peer is a
// trusted proxy. Behind a trusted proxy X-Forwarded-For is walked from the
// right, skipping trusted hops, and the first untrusted address wins;
// X-Real-IP is the fallback.
func (t *ProxyTrust) ClientIP(r *http.Request) string {
	peer, ok := remoteAddr(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !t.trusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := netip.Addr{}
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = addr.Unmap()
			if !t.trusted(client) {
				return client.String()
			}
		}
		if client.IsValid() {
			return client.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return peer.String()
}

func parsePrefixes(cidrs []string, msg string, logger *slog.Logger) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, s := range cidrs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p, err := netip.ParsePrefix(s)
		if err != nil {
			logger.Warn(msg, slog.String("prefix", s))
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// remoteAddr parses an http.Request RemoteAddr, with or without a port.
func remoteAddr(s string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(s)
	if err != nil {
		host = s
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
