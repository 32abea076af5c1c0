package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/goatnetwork/qlink/internal/config"
	"github.com/goatnetwork/qlink/internal/metrics"
	"github.com/goatnetwork/qlink/internal/state"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	Version         = "0.1.0"
	shutdownTimeout = 5 * time.Second
)

// ServerOptions carries the settings the server reads from config.AppConfig.
type ServerOptions struct {
	Addr           string
	TokenSecret    string
	AllowedOrigins []string
	MaxFragmentLen int
	FrameDelay     time.Duration
}

type HTTPServer struct {
	state    *state.State
	reporter *metrics.Reporter
	opts     ServerOptions
	started  time.Time
	router   *gin.Engine
}

func NewHTTPServer(st *state.State, reporter *metrics.Reporter) *HTTPServer {
	return NewHTTPServerWithOptions(st, reporter, ServerOptions{
		Addr:           config.AppConfig.HTTPAddr(),
		TokenSecret:    config.AppConfig.APITokenSecret,
		AllowedOrigins: config.AppConfig.AllowedOrigins,
		MaxFragmentLen: config.AppConfig.MaxFragmentLen,
		FrameDelay:     config.AppConfig.FrameDelay,
	})
}

// NewHTTPServerWithOptions builds the server and its routes. reporter may be
// nil when periodic metrics are disabled.
func NewHTTPServerWithOptions(st *state.State, reporter *metrics.Reporter, opts ServerOptions) *HTTPServer {
	metrics.RegisterMetrics()
	hs := &HTTPServer{
		state:    st,
		reporter: reporter,
		opts:     opts,
		started:  time.Now(),
	}
	hs.router = hs.newRouter()
	return hs
}

func (hs *HTTPServer) Router() *gin.Engine {
	return hs.router
}

func (hs *HTTPServer) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), recoveryMiddleware())
	if len(hs.opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: hs.opts.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "DELETE"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies(nil)

	r.GET("/api/v1/health", hs.handleHealth)

	api := r.Group("/")
	if hs.opts.TokenSecret != "" {
		api.Use(authMiddleware([]byte(hs.opts.TokenSecret)))
	}
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := api.Group("/api/v1")
	v1.POST("/fragments", hs.handleFragments)
	v1.GET("/session", hs.handleGetSession)
	v1.DELETE("/session", hs.handleResetSession)
	v1.POST("/encode", hs.handleEncode)
	v1.GET("/history", hs.handleHistory)
	v1.GET("/history/:cid", hs.handleHistoryByCID)
	v1.GET("/metrics/window", hs.handleMetricsWindow)
	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (hs *HTTPServer) Start(ctx context.Context) {
	srv := &http.Server{
		Addr:              hs.opts.Addr,
		Handler:           hs.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server is running on %s", hs.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Stopping the HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("HTTP server shutdown error: %v", err)
		}
	case err := <-errCh:
		log.Errorf("Failed to start HTTP server: %v", err)
	}
}
