package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/pkg/metrics"
	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
	"github.com/isectech/bulkshare/services/settlement-service/domain/service"
	"github.com/isectech/bulkshare/services/settlement-service/usecase"
	"github.com/isectech/bulkshare/shared/common"
)

// SettlementHTTPServer implements the HTTP API for the settlement service
type SettlementHTTPServer struct {
	router     *gin.Engine
	httpServer *http.Server
	writer     *usecase.SettlementWriter
	lifecycle  *usecase.TransactionLifecycle
	health     repository.HealthChecker
	limiter    *rate.Limiter
	logger     *logging.Logger
	metrics    *metrics.Collector
	config     Config
}

// Config holds the HTTP server settings
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MetricsPath     string
	RateLimit       common.RateLimitConfig
}

// ConfigFromCommon builds the server config from the service configuration
func ConfigFromCommon(cfg *common.Config) Config {
	return Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MetricsPath:     cfg.Metrics.Path,
		RateLimit:       cfg.RateLimit,
	}
}

// NewSettlementHTTPServer creates a new HTTP server
func NewSettlementHTTPServer(
	writer *usecase.SettlementWriter,
	lifecycle *usecase.TransactionLifecycle,
	health repository.HealthChecker,
	logger *logging.Logger,
	collector *metrics.Collector,
	config Config,
) *SettlementHTTPServer {
	server := &SettlementHTTPServer{
		writer:    writer,
		lifecycle: lifecycle,
		health:    health,
		logger:    logger.WithComponent("http"),
		metrics:   collector,
		config:    config,
	}
	if config.RateLimit.Enabled {
		server.limiter = rate.NewLimiter(rate.Limit(config.RateLimit.RPS), config.RateLimit.Burst)
	}

	server.setupRoutes()
	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return server
}

// setupRoutes configures all HTTP routes
func (s *SettlementHTTPServer) setupRoutes() {
	s.router = gin.New()

	// Middleware
	s.router.Use(s.recoveryMiddleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.metricsMiddleware())

	s.router.GET("/health", s.healthCheck)
	if s.metrics != nil {
		path := s.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(s.metrics.CreateHandler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/invoices/quote", s.quoteInvoice)

		orders := v1.Group("/orders/:orderId")
		{
			orders.PUT("/settlement", s.submitSettlement)
			orders.GET("/transaction", s.getTransaction)

			transitions := orders.Group("/transaction")
			transitions.Use(s.rateLimitMiddleware())
			{
				transitions.POST("/confirm", s.confirmTransaction)
				transitions.POST("/decline", s.declineTransaction)
			}
		}
	}
}

// HTTP Handlers

// healthCheck reports service health, probing the document store
func (s *SettlementHTTPServer) healthCheck(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   s.logger.ServiceName(),
	}

	if s.health != nil {
		if err := s.health.Ping(c.Request.Context()); err != nil {
			health["status"] = "unhealthy"
			health["storage_error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, health)
			return
		}
	}

	health["storage"] = "ok"
	c.JSON(http.StatusOK, health)
}

// quoteInvoice normalizes an invoice, applies edits and returns both sides
func (s *SettlementHTTPServer) quoteInvoice(c *gin.Context) {
	var req SplitRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, common.NewAppErrorWithDetails(common.ErrCodeInvalidInput, "invalid request format", err.Error()))
		return
	}

	session, err := buildSession(&req)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, convertQuoteToDTO(session))
}

// submitSettlement writes the counter-party's settlement for the order
func (s *SettlementHTTPServer) submitSettlement(c *gin.Context) {
	var req SplitRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, common.NewAppErrorWithDetails(common.ErrCodeInvalidInput, "invalid request format", err.Error()))
		return
	}

	session, err := buildSession(&req)
	if err != nil {
		s.handleError(c, err)
		return
	}

	record, err := s.writer.Submit(c.Request.Context(), usecase.SubmitInputFromSession(c.Param("orderId"), session))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, convertSettlementToDTO(record))
}

// getTransaction loads the settlement for review
func (s *SettlementHTTPServer) getTransaction(c *gin.Context) {
	session, err := s.lifecycle.Open(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, convertTransactionToDTO(session.View()))
}

// confirmTransaction marks the listing and settlement fulfilled
func (s *SettlementHTTPServer) confirmTransaction(c *gin.Context) {
	s.transition(c, (*usecase.TransactionSession).Confirm)
}

// declineTransaction reopens the listing and declines the settlement
func (s *SettlementHTTPServer) declineTransaction(c *gin.Context) {
	s.transition(c, (*usecase.TransactionSession).Decline)
}

func (s *SettlementHTTPServer) transition(c *gin.Context, apply func(*usecase.TransactionSession, context.Context) error) {
	ctx := c.Request.Context()

	session, err := s.lifecycle.Open(ctx, c.Param("orderId"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	if err := apply(session, ctx); err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, convertTransactionToDTO(session.View()))
}

// handleError renders err using its AppError code and status
func (s *SettlementHTTPServer) handleError(c *gin.Context, err error) {
	appErr := common.WrapError(err, common.ErrCodeInternal, "internal server error")
	requestID := logging.RequestIDFromContext(c.Request.Context())

	logger := s.logger.WithContext(c.Request.Context())
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("code", string(appErr.Code)), zap.Error(err))
	} else {
		logger.Info("Request rejected", zap.String("code", string(appErr.Code)), zap.Error(err))
	}

	c.AbortWithStatusJSON(appErr.StatusCode, ErrorResponseDTO{
		Code:      string(appErr.Code),
		Error:     appErr.Message,
		Details:   appErr.Details,
		RequestID: requestID,
	})
}

// buildSession normalizes the request invoice and replays the edits on it
func buildSession(req *SplitRequestDTO) (*service.InvoiceSession, error) {
	invoice, err := service.NormalizeInvoice(req.Invoice)
	if err != nil {
		return nil, err
	}

	session := service.NewInvoiceSession(invoice)
	for i, edit := range req.Items {
		if i >= len(invoice.Items) {
			name, price := "", ""
			if edit.Name != nil {
				name = *edit.Name
			}
			if edit.Price != nil {
				price = *edit.Price
			}
			session.AddItem(name, price)
			continue
		}
		if edit.Name != nil {
			if err := session.SetItemName(i, *edit.Name); err != nil {
				return nil, err
			}
		}
		if edit.Price != nil {
			if err := session.SetItemPrice(i, *edit.Price); err != nil {
				return nil, err
			}
		}
	}

	if err := session.Release(req.Released...); err != nil {
		return nil, err
	}
	if req.TaxesAndFees != nil {
		session.SetTaxesAndFees(*req.TaxesAndFees)
	}
	if req.CouponSavings != nil {
		session.SetCouponSavings(*req.CouponSavings)
	}
	return session, nil
}

// Start starts the HTTP server and blocks until it stops
func (s *SettlementHTTPServer) Start() error {
	s.logger.Info("Starting settlement HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *SettlementHTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down settlement HTTP server")
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}

// GetRouter returns the gin router for testing purposes
func (s *SettlementHTTPServer) GetRouter() *gin.Engine {
	return s.router
}
