package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oilcall-go/internal/logger"
	"oilcall-go/internal/types"
)

// CallService is the call workflow the handlers drive.
type CallService interface {
	StartCall(ctx context.Context, req types.CallRequest) (string, error)
	RefreshCall(ctx context.Context, callID string) (*types.CallResponse, error)
	GetPhoneCall(ctx context.Context, callID string) (*types.PhoneCall, error)
	ListPhoneCalls(ctx context.Context, limit int) ([]types.PhoneCall, error)
}

type Handler struct {
	calls CallService
	log   *logger.Logger
}

// NewRouter constructs the HTTP router for the service. gatherer backs /metrics.
func NewRouter(calls CallService, gatherer prometheus.Gatherer, log *logger.Logger) http.Handler {
	h := &Handler{calls: calls, log: log.Component("api")}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/create-phone-call", h.createPhoneCall)
		r.Post("/get-call", h.getCall)
		r.Get("/calls", h.listCalls)
		r.Get("/calls/export.xlsx", h.exportCalls)
		r.Get("/calls/summary", h.summarizeCalls)
		r.Get("/calls/{callID}", h.getStoredCall)
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.WithRequest(r).
			WithField("status", ww.Status()).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}
