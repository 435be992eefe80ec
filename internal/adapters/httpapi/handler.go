// Package httpapi exposes the merged collections, the sales dashboard, the
// customer portal and dashboard login as a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"elevadorpro/internal/auth"
	"elevadorpro/internal/core"
	"elevadorpro/internal/i18n"
	"elevadorpro/internal/logging"
	"elevadorpro/internal/metrics"
	"elevadorpro/internal/portal"
	"elevadorpro/internal/sales"
	"elevadorpro/internal/seed"
	"elevadorpro/pkg/domain"
)

const (
	apiPrefix       = "/api/v1/"
	dashboardPrefix = apiPrefix + "dashboard/"

	// SessionCookie carries the session token for browser clients.
	SessionCookie = "elevadorpro_session"

	// DefaultHeartbeat is the keep-alive interval of event streams.
	DefaultHeartbeat = 15 * time.Second

	maxBodyBytes = 1 << 20
)

// Handler serves the HTTP API.
type Handler struct {
	svc       *core.Service
	auth      *auth.Authenticator
	dashboard *sales.Dashboard
	portal    *portal.Portal
	catalog   *i18n.Catalog
	metrics   *metrics.Recorder
	log       logging.Logger
	locale    string
	heartbeat time.Duration
	now       func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics records request counts and serves /metrics from m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(h *Handler) { h.log = logging.OrNop(l) }
}

// WithLocale sets the language used when Accept-Language matches nothing.
func WithLocale(locale string) Option {
	return func(h *Handler) { h.locale = locale }
}

// WithHeartbeat overrides DefaultHeartbeat.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// WithClock overrides time.Now for export file names.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler wires the API over svc.
func NewHandler(svc *core.Service, authn *auth.Authenticator, catalog *i18n.Catalog, opts ...Option) *Handler {
	h := &Handler{
		svc:       svc,
		auth:      authn,
		dashboard: sales.NewDashboard(svc),
		portal:    portal.New(svc),
		catalog:   catalog,
		log:       logging.Nop(),
		locale:    i18n.Default.String(),
		heartbeat: DefaultHeartbeat,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP routes API requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.route(rec, r)
	if h.metrics != nil {
		h.metrics.ObserveRequest(r.Method, rec.status)
	}
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/healthz":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case path == "/metrics" && h.metrics != nil:
		h.metrics.Handler().ServeHTTP(w, r)
	case path == apiPrefix+"login":
		h.handleLogin(w, r)
	case path == apiPrefix+"logout":
		h.handleLogout(w, r)
	case path == apiPrefix+"me":
		h.handleMe(w, r)
	case path == apiPrefix+"portal/orders":
		h.handlePortal(w, r)
	case strings.HasPrefix(path, dashboardPrefix):
		h.handleDashboard(w, r, strings.TrimPrefix(path, dashboardPrefix))
	case strings.HasPrefix(path, apiPrefix):
		h.handleCollection(w, r, strings.TrimPrefix(path, apiPrefix))
	default:
		h.message(w, r, http.StatusNotFound, "not_found")
	}
}

func (h *Handler) translator(r *http.Request) *i18n.Translator {
	return h.catalog.Translator(r.Header.Get("Accept-Language"), h.locale)
}

// message writes a translated error body.
func (h *Handler) message(w http.ResponseWriter, r *http.Request, status int, id string, kv ...any) {
	writeError(w, status, h.translator(r).T(id, kv...))
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	h.message(w, r, http.StatusMethodNotAllowed, "method_not_allowed")
}

// fail maps err to a status and a translated message. kv feeds the
// message template.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, kv ...any) {
	var (
		verr *domain.ValidationError
		ferr *seed.FetchError
	)
	switch {
	case errors.As(err, &verr):
		t := h.translator(r)
		fields := make(map[string]string, len(verr.Fields))
		for _, f := range verr.Fields {
			if _, seen := fields[f.Field]; !seen {
				fields[f.Field] = t.T("field_" + f.Code)
			}
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  t.T("validation_failed"),
			"fields": fields,
		})
	case errors.As(err, &ferr):
		h.log.Error("seed unavailable", "collection", ferr.Collection, "key", ferr.Key, "error", ferr.Err)
		h.message(w, r, http.StatusServiceUnavailable, "seed_unavailable")
	case errors.Is(err, core.ErrNotFound):
		h.message(w, r, http.StatusNotFound, "record_not_found")
	case errors.Is(err, core.ErrDuplicateID):
		h.message(w, r, http.StatusConflict, "record_duplicate", kv...)
	case errors.Is(err, core.ErrUnknownCollection):
		h.message(w, r, http.StatusNotFound, "collection_unknown", kv...)
	case errors.Is(err, core.ErrMissingID):
		h.message(w, r, http.StatusBadRequest, "record_missing_id")
	case errors.Is(err, auth.ErrMissingCredentials):
		h.message(w, r, http.StatusBadRequest, "auth_missing")
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.message(w, r, http.StatusUnauthorized, "auth_invalid")
	case errors.Is(err, auth.ErrForbidden):
		h.message(w, r, http.StatusForbidden, "auth_forbidden")
	case errors.Is(err, portal.ErrInvalidDocument):
		h.message(w, r, http.StatusBadRequest, "portal_invalid_document")
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.message(w, r, http.StatusInternalServerError, "internal_error")
	}
}

// decodeBody reads a JSON object from the request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder keeps the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Flush lets event streams push through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
