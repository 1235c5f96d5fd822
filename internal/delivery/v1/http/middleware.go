package http

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// RequestObserver учитывает HTTP-запросы и отказы лимитера.
type RequestObserver interface {
	ObserveRequest(method string, route string, status int, took time.Duration)
	ObserveRateLimitHit(route string)
}

// observeRequests пишет метрики по шаблону маршрута chi.
func observeRequests(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			obs.ObserveRequest(r.Method, route, status, time.Since(start))
		})
	}
}

// clientLimiter — token bucket на каждый адрес клиента.
type clientLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	clients  map[string]*limitedClient
	lastGC   time.Time
	now      func() time.Time
	observer RequestObserver
}

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int, observer RequestObserver) *clientLimiter {
	if burst < 1 {
		burst = 1
	}

	return &clientLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		clients:  make(map[string]*limitedClient),
		now:      time.Now,
		observer: observer,
	}
}

func (l *clientLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastGC) > l.idleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > l.idleTTL {
				delete(l.clients, k)
			}
		}
		l.lastGC = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &limitedClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// middleware отвечает 429, если клиент исчерпал лимит.
func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientKey(r)) {
			if l.observer != nil {
				l.observer.ObserveRateLimitHit(r.URL.Path)
			}
			w.Header().Set("Retry-After", "1")
			WriteError(w, e.ErrTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, e.ErrMethodNotAllowed)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusNotFound, NewErrorResponse(http.StatusNotFound, "not found", ""))
}
