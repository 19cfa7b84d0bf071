package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/service"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/tracer"
)

const (
	ctxClaims    = "claims"
	ctxRequestID = "request_id"

	headerRequestID = "X-Request-ID"
)

// RequestID propagates an inbound X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// Recovery turns a panic into a 500 with the standard error body.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			logger.RequestID(requestID(c)),
			zap.Stack("stack"),
		)
		respondError(c, http.StatusInternalServerError, "internal server error")
	})
}

// AccessLog writes one structured line per request.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("ip", c.ClientIP()),
			logger.RequestID(requestID(c)),
		}
		if claims, ok := claimsFrom(c); ok {
			fields = append(fields, zap.String("user_id", claims.UserID.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// Metrics records request count, latency and in-flight requests. Routes are
// labelled by their pattern, never by raw path, to bound cardinality.
func Metrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.InFlightGauge.Inc()
		start := time.Now()
		c.Next()
		m.InFlightGauge.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

// Tracing starts a server span per request, continuing any inbound trace.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Tracer().Start(ctx, c.Request.Method+" "+route)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.String("request.id", requestID(c)),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// CORS answers preflights and sets headers for allowed origins.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	wildcard := false
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (wildcard || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Expose-Headers", "Content-Range, Accept-Ranges, Content-Length, X-Request-ID, X-Total-Count, X-Total-Pages")
			c.Header("Access-Control-Max-Age", maxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ipLimiter hands out one token bucket per client IP. Buckets idle for
// longer than ttl are swept on access.
type ipLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		limit:     limit,
		burst:     burst,
		ttl:       10 * time.Minute,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.limiter.Allow()
}

// RateLimit applies the global per-IP limit.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return limitBy(newIPLimiter(rate.Limit(cfg.RequestsPerSecond), burst))
}

// AuthRateLimit is the stricter per-IP limit for credential endpoints.
func AuthRateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.AuthRequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	perMinute := cfg.AuthRequestsPerMinute
	return limitBy(newIPLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute))
}

func limitBy(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			respondError(c, http.StatusTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}

// RequireAuth validates the bearer access token and stores its claims.
func RequireAuth(jwtm *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := jwtm.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token has expired"
			}
			respondError(c, http.StatusUnauthorized, msg)
			return
		}

		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// RequireRole allows only the listed roles. It must run after RequireAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		respondError(c, http.StatusForbidden, "access denied")
	}
}

func claimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}

// callerFrom builds the service caller for an authenticated request.
func callerFrom(c *gin.Context) service.Caller {
	claims, ok := claimsFrom(c)
	if !ok {
		return service.Caller{IP: c.ClientIP(), RequestID: requestID(c)}
	}
	return service.CallerFromClaims(claims, c.ClientIP(), requestID(c))
}
