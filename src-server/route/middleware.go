package route

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"icsplit/src-server/utils"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitorsMutex sync.Mutex
	visitors      = make(map[string]*visitor)
)

// Per-IP token bucket guarding the endpoints that parse or split files.
// Buckets refill at UPLOAD_RATE_PER_MINUTE with a burst of the same
// size. Stale buckets get pruned in passing once the map grows.
func RateLimitMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !getVisitor(ip, as.Config.GetUploadRatePerMinute()).Allow() {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Too many requests, slow down"))
			return
		}
		next(w, r)
	}
}

func getVisitor(ip string, ratePerMinute int) *rate.Limiter {
	visitorsMutex.Lock()
	defer visitorsMutex.Unlock()

	if len(visitors) > 4096 {
		for ip, v := range visitors {
			if time.Since(v.lastSeen) > time.Hour {
				delete(visitors, ip)
			}
		}
	}

	v, ok := visitors[ip]
	if !ok {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60), ratePerMinute),
		}
		visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
