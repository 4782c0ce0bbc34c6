package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/calorietracker/internal/middleware"
	"github.com/2beens/calorietracker/internal/telemetry/metrics"
	"github.com/2beens/calorietracker/pkg"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler

	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
}

func NewServer(
	handler *Handler,
	metricsManager *metrics.Manager,
	promRegistry *prometheus.Registry,
) *Server {
	return &Server{
		handler:        handler,
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
	}
}

// Router builds the API routes with the full middleware chain.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("calorietracker-api"))

	s.handler.SetupRoutes(r)

	r.Handle("/metrics", otelhttp.NewHandler(
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		"metrics",
	)).Methods("GET").Name("metrics")

	// all the rest - unhandled paths
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteResponse(w, pkg.ContentType.Text, "not found", http.StatusNotFound)
	}).Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

// Serve starts listening in the background. Use GracefulShutdown to stop.
// A listen failure is delivered on the returned channel.
func (s *Server) Serve(host string, port int) <-chan error {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.Router(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
		}
	}()

	return errCh
}

func (s *Server) GracefulShutdown() {
	if s.httpServer == nil {
		return
	}
	log.Debug("graceful shutdown initiated ...")

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Errorf(" >>> failed to gracefully shutdown http server: %s", err)
	}
	log.Warnln("server shut down")
}
