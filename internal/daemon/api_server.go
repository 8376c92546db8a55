package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"polyglot/internal/api"
	"polyglot/internal/config"
	"polyglot/internal/logging"
	"polyglot/internal/metrics"
	"polyglot/internal/queue"
	"polyglot/internal/services"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.handler = srv.routes(strings.TrimSpace(cfg.Paths.APIToken))
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext)
	r.Use(s.recordMetrics)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", s.handleMetrics)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(token))

		r.Get("/api/status", s.handleStatus)
		r.Post("/api/translations", s.handleEnqueue)
		r.Get("/api/translations/{id}", s.handleTranslationStatus)
		r.Get("/api/queue", s.handleQueue)
		r.Delete("/api/queue", s.handleQueueClear)
		r.Get("/api/queue/stats", s.handleQueueStats)
		r.Get("/api/queue/{id}", s.handleQueueItem)
		r.Post("/api/queue/process", s.handleProcess)
		r.Post("/api/llm/test", s.handleLLMTest)
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	// A shut-down http.Server cannot serve again, so each start gets its own.
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	s.server = server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.server = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).ToAPI())
}

func (s *apiServer) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "Invalid request body.")
		return
	}
	resp, err := s.daemon.Enqueue(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleTranslationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	view, err := s.daemon.TranslationStatus(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var postID int64
	if raw := query.Get("post_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "Invalid post id.")
			return
		}
		postID = parsed
	}
	items, err := s.daemon.ListQueue(r.Context(), api.NewQueueFilter(query["status"], postID))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []api.QueueItem{}
	}
	s.writeJSON(w, http.StatusOK, api.QueueListResponse{Items: items})
}

func (s *apiServer) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.daemon.QueueService().Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueStatsResponse{Counts: counts})
}

func (s *apiServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, err := s.daemon.GetQueueItem(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if item == nil {
		s.writeError(w, r, http.StatusNotFound, "Queue item not found.")
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueItemResponse{Item: *item})
}

func (s *apiServer) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	var (
		removed int64
		err     error
	)
	switch scope := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("scope"))); scope {
	case "", "all":
		removed, err = s.daemon.ClearQueue(r.Context())
	case string(queue.StatusCompleted):
		removed, err = s.daemon.ClearCompleted(r.Context())
	case string(queue.StatusFailed):
		removed, err = s.daemon.ClearFailed(r.Context())
	default:
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("Unknown clear scope %q.", scope))
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
}

// handleProcess runs one batch inline. Callers that do not ask for JSON are
// redirected to the status view.
func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	summary, err := s.daemon.ProcessNow(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if wantsJSON(r) {
		s.writeJSON(w, http.StatusOK, api.ProcessResponse{
			Summary: api.FromSummary(summary),
			Holder:  api.FromLease(summary.Holder),
		})
		return
	}
	http.Redirect(w, r, "/api/status", http.StatusSeeOther)
}

func (s *apiServer) handleLLMTest(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.TestLLM(r.Context()))
}

func (s *apiServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if counts, err := s.daemon.QueueService().Stats(r.Context()); err == nil {
		metrics.SetQueueItems(counts)
	} else {
		s.logger.Warn("queue gauge refresh failed", logging.Error(err))
	}
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *apiServer) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, r, http.StatusBadRequest, "Invalid queue item id.")
		return 0, false
	}
	return id, true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, err.Error())
	default:
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
		)
		s.writeError(w, r, http.StatusInternalServerError, "Internal server error.")
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{
		Error:     message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// requestContext copies the chi request id into the services context so
// downstream log lines carry it.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(services.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequestDurationSeconds.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
