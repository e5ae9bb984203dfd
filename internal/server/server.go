package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/internal/pipeline"
)

const (
	readTimeout     = 15 * time.Second
	idleTimeout     = 60 * time.Second
	maxRequestBytes = 1 << 20
)

type Server struct {
	router  *mux.Router
	srv     *http.Server
	handler *SubmissionHandler
	logger  *zap.SugaredLogger
}

// NewServer builds the HTTP API. gatherer backs the /metrics endpoint.
// Evaluations block until every test case has run, so the write timeout
// must cover a full evaluation.
func NewServer(port string, manager pipeline.Manager, gatherer prometheus.Gatherer, writeTimeout time.Duration) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		handler: NewSubmissionHandler(manager),
		logger:  logger.NewNamedLogger("http"),
	}

	s.router.Use(s.logRequests)
	s.handler.RegisterRoutes(s.router)
	s.router.HandleFunc("/health", health).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background. Errors other than a clean shutdown are
// delivered on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down http server")
	return s.srv.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Infof("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func health(w http.ResponseWriter, _ *http.Request) {
	ResponseWithJson(w, http.StatusOK, map[string]string{"status": "ok"})
}
