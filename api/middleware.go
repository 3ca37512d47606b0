// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// requestID tags each request with an ID, reusing one supplied by the client.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs one line per request and records HTTP metrics.
func requestLogger(logger *slog.Logger, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.requestTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.requestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed,
			"requestID", c.GetString(requestIDHeader))
	}
}

// cors sets CORS headers and answers preflight requests.
func cors(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)

		// Handle preflight
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// clientIdleTTL is how long a client's bucket survives without requests.
const clientIdleTTL = 15 * time.Minute

// clientLimiter holds a token bucket per client IP. Buckets idle for longer
// than ttl are swept at most once per ttl, on the request path.
type clientLimiter struct {
	clients   map[string]*clientBucket
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	return &clientLimiter{
		clients:   make(map[string]*clientBucket),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		ttl:       clientIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (cl *clientLimiter) get(ip string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	if now.Sub(cl.lastSweep) >= cl.ttl {
		cl.sweep(now)
	}

	bucket, exists := cl.clients[ip]
	if !exists {
		bucket = &clientBucket{limiter: rate.NewLimiter(cl.rate, cl.burst)}
		cl.clients[ip] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter
}

// sweep drops idle buckets. Callers hold mu.
func (cl *clientLimiter) sweep(now time.Time) {
	for ip, bucket := range cl.clients {
		if now.Sub(bucket.lastSeen) >= cl.ttl {
			delete(cl.clients, ip)
		}
	}
	cl.lastSweep = now
}

// rateLimit rejects requests from clients that exceed their bucket.
func rateLimit(cl *clientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.RemoteIP()
		}

		if !cl.get(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
