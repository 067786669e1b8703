package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Afrawles/trackreport/internal/auth"
	"github.com/Afrawles/trackreport/internal/metrics"
	"github.com/Afrawles/trackreport/internal/report"
)

const (
	headerRequestID = "X-Request-ID"
	keyRequestID    = "request_id"
	keyPrincipal    = "principal"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(keyRequestID)
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("request_id", requestIDFrom(c)).
			Msg("http")
	}
}

func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authenticate(v *auth.Verifier, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var p auth.Principal
			if p, err = v.Verify(token); err == nil {
				c.Set(keyPrincipal, p)
				c.Next()
				return
			}
		}
		writeError(c, log, errors.Join(report.ErrUnauthorized, err))
	}
}

func principalFrom(c *gin.Context) auth.Principal {
	p, _ := c.Get(keyPrincipal)
	principal, _ := p.(auth.Principal)
	return principal
}

// limiters hands out one token bucket per caller. Buckets that have refilled completely
// carry no state and are dropped on the next sweep.
type limiters struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	buckets   map[string]*rate.Limiter
	now       func() time.Time
	lastSweep time.Time
}

const limiterSweepEvery = time.Minute

func newLimiters(rps float64, burst int) *limiters {
	return &limiters{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
		now:     time.Now,
	}
}

func (l *limiters) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterSweepEvery {
		for k, lim := range l.buckets {
			if lim.TokensAt(now) >= float64(l.burst) {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	lim, ok := l.buckets[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = lim
	}
	return lim.AllowN(now, 1)
}

// rateLimit keys on the authenticated user, so it must run after authenticate.
func rateLimit(l *limiters, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(principalFrom(c).UserID) {
			writeError(c, log, errRateLimited)
			return
		}
		c.Next()
	}
}
