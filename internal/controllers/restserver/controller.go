// Package restserver exposes the tracker angle pipeline over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chrissnell/suntrack/internal/log"
	"github.com/chrissnell/suntrack/pkg/config"
	"github.com/chrissnell/suntrack/pkg/pipeline"
)

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	cfg      *config.ConfigData
	Server   http.Server
	timeout  time.Duration
	options  pipeline.Options
	logger   *zap.SugaredLogger
	metrics  *metrics
	handlers *Handlers
}

// NewController creates a new REST server controller. cfg is expected to
// have had its defaults applied.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, logger *zap.SugaredLogger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	timeout, err := cfg.Server.Timeout()
	if err != nil {
		return nil, err
	}

	ctrl := &Controller{
		ctx:     ctx,
		wg:      wg,
		cfg:     cfg,
		timeout: timeout,
		options: pipeline.Options{
			Workers:   cfg.Server.Workers,
			MaxPoints: cfg.Server.MaxPoints,
		},
		logger:  logger,
		metrics: newMetrics(),
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", cfg.Server.ListenAddr, cfg.Server.Port)
	ctrl.Server.Handler = ctrl.Handler()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// Handler returns the complete HTTP handler, middleware included
func (c *Controller) Handler() http.Handler {
	return c.requestLogMiddleware(c.corsMiddleware(c.setupRouter()))
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.cfg.Server.Cert != "" && c.cfg.Server.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.cfg.Server.Cert, c.cfg.Server.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.metricsMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tracker_angles", c.handlers.ComputeTrackerAngles).Methods("POST")
	api.HandleFunc("/tracker_angles/summary", c.handlers.SummarizeTrackerAngles).Methods("POST")
	api.HandleFunc("/sites", c.handlers.ListSites).Methods("GET")
	api.HandleFunc("/sites/{name}/tracker_angles", c.handlers.SiteTrackerAngles).Methods("GET")
	api.HandleFunc("/sites/{name}/summary", c.handlers.SiteSummary).Methods("GET")
	api.HandleFunc("/requests", c.handlers.RecentRequests).Methods("GET")

	router.HandleFunc("/healthz", c.handlers.Health).Methods("GET")
	if c.cfg.Server.EnableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(c.metrics.registry, promhttp.HandlerOpts{}))
	}

	return router
}
