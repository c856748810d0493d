package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxClients = 10000

// ClientLimiter applies a token bucket per client address. Calendar apps
// poll feeds on a schedule, so a small burst is enough for legitimate use.
type ClientLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientEntry
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	trusted  []netip.Prefix
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New returns a limiter allowing r requests per second with the given burst.
// Entries idle for longer than idleTTL are evicted. trustedProxies lists IPs
// or CIDRs whose forwarding headers are believed; when empty forwarding
// headers are ignored.
func New(r rate.Limit, burst int, idleTTL time.Duration, trustedProxies []string) *ClientLimiter {
	l := &ClientLimiter{
		clients: make(map[string]*clientEntry),
		rate:    r,
		burst:   burst,
		idleTTL: idleTTL,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, p := range trustedProxies {
		if prefix, ok := parsePrefix(p); ok {
			l.trusted = append(l.trusted, prefix)
		}
	}
	go l.evictLoop()
	return l
}

// Close stops the background eviction loop and waits for it to exit.
func (l *ClientLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

// Allow reports whether a request from client may proceed.
func (l *ClientLimiter) Allow(client string) bool {
	return l.limiterFor(client).Allow()
}

// Middleware rejects requests over the limit with 429.
func (l *ClientLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(l.ClientIP(r)) {
				retry := 1
				if l.rate > 0 {
					retry = int(time.Duration(float64(time.Second)/float64(l.rate)).Seconds()) + 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *ClientLimiter) limiterFor(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if e, ok := l.clients[client]; ok {
		e.lastSeen = now
		return e.limiter
	}
	if len(l.clients) >= maxClients {
		l.evictOldestLocked()
	}
	e := &clientEntry{limiter: rate.NewLimiter(l.rate, l.burst), lastSeen: now}
	l.clients[client] = e
	return e.limiter
}

func (l *ClientLimiter) evictOldestLocked() {
	var oldest string
	var oldestSeen time.Time
	for client, e := range l.clients {
		if oldest == "" || e.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen = client, e.lastSeen
		}
	}
	delete(l.clients, oldest)
}

func (l *ClientLimiter) evictLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle(time.Now())
		}
	}
}

func (l *ClientLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := now.Add(-l.idleTTL)
	for client, e := range l.clients {
		if e.lastSeen.Before(cutoff) {
			delete(l.clients, client)
		}
	}
}

// ClientIP resolves the originating client address, honouring
// X-Forwarded-For and X-Real-IP only from trusted peers.
func (l *ClientLimiter) ClientIP(r *http.Request) string {
	remote, ok := parseAddr(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !l.isTrusted(remote) {
		return remote.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap().String()
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}
	return remote.String()
}

func (l *ClientLimiter) isTrusted(addr netip.Addr) bool {
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func parseAddr(hostport string) (netip.Addr, bool) {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func parsePrefix(s string) (netip.Prefix, bool) {
	s = strings.TrimSpace(s)
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Masked(), true
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), true
	}
	return netip.Prefix{}, false
}
