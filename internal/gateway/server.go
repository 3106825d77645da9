package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"envdesk/internal/model"
	"envdesk/internal/mutate"
	"envdesk/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Backend is what the server exposes over HTTP. store.Store implements it.
type Backend interface {
	FetchState(ctx context.Context) (model.State, error)
	Commit(ctx context.Context, op model.Operation) error
	SealBatch(ctx context.Context) error
	UndoLastBatch(ctx context.Context) error
	Batches(ctx context.Context, limit int) ([]model.Batch, error)
	BatchOps(ctx context.Context, batchID string) ([]model.Operation, error)
	Apply(ctx context.Context) (model.ApplyResult, error)
}

type ServerOpts struct {
	Logger zerolog.Logger
	// Registry enables GET /metrics and request counters. Nil disables both.
	Registry *prometheus.Registry
}

// NewServer wires the backend routes into a chi router.
func NewServer(b Backend, opts ServerOpts) http.Handler {
	h := &handler{b: b, log: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if opts.Registry != nil {
		h.requests = promauto.With(opts.Registry).NewCounterVec(prometheus.CounterOpts{
			Name: "envdesk_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"})
	}
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Post("/ops", h.commit)
		r.Get("/batches", h.batches)
		r.Get("/batches/{id}/ops", h.batchOps)
		r.Post("/batches/seal", h.seal)
		r.Post("/batches/undo", h.undo)
		r.Post("/apply", h.apply)
	})
	return r
}

type handler struct {
	b        Backend
	log      zerolog.Logger
	requests *prometheus.CounterVec
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if h.requests != nil {
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			h.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}
		h.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	st, err := h.b.FetchState(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) commit(w http.ResponseWriter, r *http.Request) {
	var op model.Operation
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&op); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid operation: " + err.Error(), Reason: "bad_request"})
		return
	}
	if err := h.b.Commit(r.Context(), op); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) seal(w http.ResponseWriter, r *http.Request) {
	if err := h.b.SealBatch(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) undo(w http.ResponseWriter, r *http.Request) {
	if err := h.b.UndoLastBatch(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) batches(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit", Reason: "bad_request"})
			return
		}
		limit = n
	}
	out, err := h.b.Batches(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) batchOps(w http.ResponseWriter, r *http.Request) {
	ops, err := h.b.BatchOps(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

func (h *handler) apply(w http.ResponseWriter, r *http.Request) {
	res, err := h.b.Apply(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

const (
	reasonNothingToUndo = "nothing_to_undo"
	reasonLocked        = "locked"
	reasonUnknownBatch  = "unknown_batch"
	reasonInternal      = "internal"
)

type errorBody struct {
	Error    string       `json:"error"`
	Reason   string       `json:"reason"`
	Op       model.OpKind `json:"op,omitempty"`
	Variable string       `json:"variable,omitempty"`
	Index    int          `json:"index,omitempty"`
	Detail   string       `json:"detail,omitempty"`
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	var ve *mutate.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:    ve.Error(),
			Reason:   string(ve.Reason),
			Op:       ve.Op,
			Variable: ve.Variable,
			Index:    ve.Index,
			Detail:   ve.Detail,
		})
	case errors.Is(err, store.ErrNothingToUndo):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Reason: reasonNothingToUndo})
	case errors.Is(err, store.ErrUnknownBatch):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Reason: reasonUnknownBatch})
	case errors.Is(err, store.ErrLocked):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error(), Reason: reasonLocked})
	default:
		h.log.Error().Err(err).Msg("backend error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Reason: reasonInternal})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
