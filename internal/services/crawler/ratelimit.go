package crawler

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiters enforces the courtesy delay serially per host. Limiters are
// created lazily and live only for one crawl run, so crawls never share
// rate-limiting state.
type hostLimiters struct {
	mu       sync.Mutex
	delay    time.Duration
	limiters map[string]*rate.Limiter
}

func newHostLimiters(delay time.Duration) *hostLimiters {
	return &hostLimiters{
		delay:    delay,
		limiters: make(map[string]*rate.Limiter),
	}
}

// get returns the limiter for a host, creating it on first use. Burst 1
// means successive fetches to the same host wait a full delay apart.
func (h *hostLimiters) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.delay), 1)
		h.limiters[host] = limiter
	}
	return limiter
}
