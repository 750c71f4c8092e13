package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/auth"
	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// authenticate verifies the bearer credential and attaches the caller
// identity to the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, r, txerrors.New(txerrors.KindUnauthenticated, "api.authenticate", "missing bearer credential"))
			return
		}
		id, err := s.verifier.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(models.WithIdentity(r.Context(), id)))
	})
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per wallet. A zero rate disables it.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// Handler limits requests per authenticated wallet, falling back to the
// remote address.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl.rate <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if id, ok := models.IdentityFromContext(r.Context()); ok && id.Address != "" {
			key = id.Address
		}

		if !rl.allow(key) {
			zap.L().Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", r.URL.Path))
			writeJSON(w, http.StatusTooManyRequests, errorEnvelope{Error: errorBody{
				Kind:    "rate_limited",
				Message: "too many requests",
				Advice:  string(txerrors.AdviceRetry),
			}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup forgets wallets not seen within idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until stop is closed.
func (rl *RateLimiter) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup(interval)
			case <-stop:
				return
			}
		}
	}()
}

// Limiter exposes the per-wallet limiter so callers can schedule cleanup.
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}
