package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"invoicing-service/internal/application"
	"invoicing-service/internal/criteria"
	"invoicing-service/internal/domain"
	"invoicing-service/internal/infrastructure/logx"
	"invoicing-service/internal/infrastructure/metrics"
	"invoicing-service/internal/unitofwork"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Server struct {
	items    *application.ItemService
	coord    *unitofwork.Coordinator
	validate *validator.Validate
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	ping     func(ctx context.Context) error
}

type Option func(*Server)

// WithMetrics records request metrics on m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) { s.metrics, s.gatherer = m, g }
}

func NewServer(items *application.ItemService, coord *unitofwork.Coordinator, opts ...Option) *Server {
	s := &Server{items: items, coord: coord, validate: validator.New(validator.WithRequiredStructEnabled())}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetReadyCheck installs the probe behind /readyz.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Code: status, Message: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

// statusOf maps service errors onto HTTP statuses.
func statusOf(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, application.ErrBadRequest),
		errors.Is(err, criteria.ErrInvalidValue),
		errors.Is(err, criteria.ErrUndeclaredField):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, domain.ErrInvalidItem),
		errors.Is(err, domain.ErrInvalidDetail),
		errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes its envelope. Server errors keep their message
// out of the response.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	log := logx.WithFields(r.Context())
	if application.IsClientError(err) || status < http.StatusInternalServerError {
		log.Warn("http.request_rejected", zap.Int("status", status), zap.Error(err))
		writeError(w, status, err.Error())
		return
	}
	log.Error("http.request_failed", zap.Error(err))
	writeError(w, status, http.StatusText(status))
}
