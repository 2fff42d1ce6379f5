package serv

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter tracks a token bucket per client IP. Idle entries are dropped
// after a few minutes to keep the map bounded.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	rate    rate.Limit
	bucket  int
	header  string
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(conf RateLimiter) *ipLimiter {
	ipl := &ipLimiter{
		clients: make(map[string]*client),
		rate:    rate.Limit(conf.Rate),
		bucket:  conf.Bucket,
		header:  conf.IPHeader,
	}
	go ipl.cleanup()
	return ipl
}

func (ipl *ipLimiter) allow(ip string) bool {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	cl, ok := ipl.clients[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(ipl.rate, ipl.bucket)}
		ipl.clients[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

func (ipl *ipLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		ipl.mu.Lock()
		for ip, cl := range ipl.clients {
			if time.Since(cl.lastSeen) > 3*time.Minute {
				delete(ipl.clients, ip)
			}
		}
		ipl.mu.Unlock()
	}
}

func (ipl *ipLimiter) clientIP(r *http.Request) string {
	if ipl.header != "" {
		if v := r.Header.Get(ipl.header); v != "" {
			return v
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func rateLimiter(s1 *HttpService, h http.Handler) http.Handler {
	s := s1.Load().(*qmapService)
	ipl := newIPLimiter(s.conf.RateLimiter)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ipl.clientIP(r)
		if !ipl.allow(ip) {
			s := s1.Load().(*qmapService)
			s.log.Warnf("rate limited: %s", ip)
			http.Error(w, http.StatusText(http.StatusTooManyRequests),
				http.StatusTooManyRequests)
			return
		}
		h.ServeHTTP(w, r)
	})
}
