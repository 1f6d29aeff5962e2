// Package api exposes the entity layer over HTTP. Handlers go through the
// model package only and never touch the graph store directly.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"famgraph/backend/internal/constants"
	"famgraph/backend/internal/model"
)

var (
	validationsOnce sync.Once
	validationsErr  error
)

// NewRouter builds the gin engine with logging, recovery, metrics and all
// routes registered
func NewRouter(mapper *model.Mapper, log *zap.Logger) *gin.Engine {
	validationsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			validationsErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		validationsErr = registerValidations(v)
	})
	if validationsErr != nil {
		// Requests using the custom tags will fail to bind with a 400.
		log.Error("Failed to register request validations", zap.Error(validationsErr))
	}

	registry := prometheus.NewRegistry()
	metrics := newMetrics(registry, mapper)

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(metrics.middleware())
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	h := NewHandler(mapper, log)
	h.RegisterRoutes(router.Group("/api"))
	return router
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newMetrics(registry *prometheus.Registry, mapper *model.Mapper) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "famgraph_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "famgraph_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	store := mapper.Store()
	registry.MustRegister(
		m.requests,
		m.latency,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "famgraph_graph_nodes",
			Help: "Nodes currently in the graph store",
		}, func() float64 { return float64(store.NodeCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "famgraph_graph_edges",
			Help: "Edges currently in the graph store",
		}, func() float64 { return float64(store.EdgeCount()) }),
	)
	return m
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// registerValidations adds the gender and isodate tags used by the request types
func registerValidations(v *validator.Validate) error {
	rules := []struct {
		tag string
		fn  validator.Func
	}{
		{"gender", validateGender},
		{"isodate", validateISODate},
	}
	for _, rule := range rules {
		if err := v.RegisterValidation(rule.tag, rule.fn); err != nil {
			return fmt.Errorf("failed to register %q validation: %w", rule.tag, err)
		}
	}
	return nil
}

func validateGender(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", constants.GenderMale, constants.GenderFemale, constants.GenderOther:
		return true
	}
	return false
}

func validateISODate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(constants.DateLayout, value)
	return err == nil
}
