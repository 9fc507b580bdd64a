package http

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/shared/common"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

func (s *SettlementHTTPServer) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

func (s *SettlementHTTPServer) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		s.logger.WithContext(c.Request.Context()).Info("HTTP Request",
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status_code", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *SettlementHTTPServer) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		s.metrics.RecordHTTPRequestInFlight(1)
		defer s.metrics.RecordHTTPRequestInFlight(-1)

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		s.metrics.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

// rateLimitMiddleware applies a shared token bucket to the routes it guards
func (s *SettlementHTTPServer) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.handleError(c, common.ErrRateLimited())
			return
		}
		c.Next()
	}
}

func (s *SettlementHTTPServer) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic recovered", zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
				s.handleError(c, common.ErrInternal(""))
			}
		}()
		c.Next()
	}
}
