package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleVisitorTTL is how long an address's limiter is kept after its last request.
const idleVisitorTTL = 10 * time.Minute

// defaultMaxVisitors bounds the number of addresses tracked at once.
const defaultMaxVisitors = 10000

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client address. Once maxVisitors
// addresses are tracked, new addresses are refused until idle ones expire.
type ipLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	burst       int
	maxVisitors int
	lastPrune   time.Time
	now         func() time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{
		visitors:    make(map[string]*visitor),
		limit:       rate.Every(time.Minute / time.Duration(perMinute)),
		burst:       perMinute,
		maxVisitors: defaultMaxVisitors,
		now:         time.Now,
	}
}

func (l *ipLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > idleVisitorTTL {
		l.prune(now)
	}

	v, ok := l.visitors[key]
	if !ok {
		if len(l.visitors) >= l.maxVisitors {
			l.prune(now)
			if len(l.visitors) >= l.maxVisitors {
				return false
			}
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *ipLimiter) prune(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleVisitorTTL {
			delete(l.visitors, k)
		}
	}
	l.lastPrune = now
}

// limitEnquiries rejects enquiry submissions beyond the per-address rate.
// The key is the peer address, or the forwarded client address when the
// server trusts proxy headers and RealIP has rewritten RemoteAddr.
func (s *Server) limitEnquiries(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			key = host
		}
		if !s.enquiryLimiter.allow(key) {
			s.logger.Warn("enquiry rate limited", "remote", key)
			w.Header().Set("Retry-After", "60")
			s.renderError(w, http.StatusTooManyRequests, "Too many enquiries from your address. Please try again in a minute.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
