package httpapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// submitLimiter throttles friend-request submission per client so one user
// cannot flood the directory with applications.
type submitLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSubmitLimiter() *submitLimiter {
	return &submitLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Second),
		burst:    10,
	}
}

func (l *submitLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()

	if len(l.visitors) > 10000 {
		l.evictStale()
	}
	return v.limiter.Allow()
}

func (l *submitLimiter) evictStale() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for k, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, k)
		}
	}
}

func clientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
