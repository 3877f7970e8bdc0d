package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const cacheNoStore = "no-store"

type APIHandlers struct {
	dashboard   *services.Dashboard
	defaultTopN int
	logger      *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, defaultTopN int, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard:   dashboard,
		defaultTopN: defaultTopN,
		logger:      logger,
	}
}

// viewQuery parses the selection carried in the request's query string.
func viewQuery(r *http.Request, dashboard *services.Dashboard, defaultTopN int) (models.ViewQuery, error) {
	opts, err := dashboard.Options()
	if err != nil {
		return models.ViewQuery{}, err
	}
	q, err := services.ParseViewQuery(r.URL.Query(), opts, defaultTopN)
	if err != nil {
		return models.ViewQuery{}, errors.BadRequestWrap(err, err.Error())
	}
	return q, nil
}

// toAppError maps service errors that have no domain type of their own.
func toAppError(err error) error {
	if stderrors.Is(err, services.ErrNotLoaded) {
		return errors.ServiceUnavailableWrap(err, "Dataset is not loaded yet")
	}
	return err
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, toAppError(err), observability.GetRequestID(r.Context()))
}

// serveView parses the selection, computes one view and writes it.
func serveView[T any](h *APIHandlers, w http.ResponseWriter, r *http.Request, compute func(models.ViewQuery) (T, error)) {
	q, err := viewQuery(r, h.dashboard, h.defaultTopN)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data, err := compute(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheNoStore})
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.dashboard.Options()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, map[string]any{
		"options":       opts,
		"default":       services.DefaultSelection(opts),
		"default_top_n": h.defaultTopN,
		"min_top_n":     models.MinTopN,
		"max_top_n":     models.MaxTopN,
	}, map[string]string{"Cache-Control": "public, max-age=300"})
}

func (h *APIHandlers) HandleViews(w http.ResponseWriter, r *http.Request) {
	serveView(h, w, r, h.dashboard.Views)
}

func (h *APIHandlers) HandleTrends(w http.ResponseWriter, r *http.Request) {
	serveView(h, w, r, func(q models.ViewQuery) (map[string]any, error) {
		trends, err := h.dashboard.Trends(q)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"monthly_trend": trends.MonthlyTrend,
			"pivot":         trends.MonthlyTrend.Pivot(),
			"overall_trend": trends.OverallTrend,
		}, nil
	})
}

func (h *APIHandlers) HandleRegional(w http.ResponseWriter, r *http.Request) {
	serveView(h, w, r, h.dashboard.Regional)
}

func (h *APIHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	serveView(h, w, r, h.dashboard.Products)
}

func (h *APIHandlers) HandleRepeatCustomers(w http.ResponseWriter, r *http.Request) {
	serveView(h, w, r, h.dashboard.RepeatCustomers)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := h.dashboard.Snapshot()
	errors.WriteSuccess(w, map[string]any{
		"status":         "healthy",
		"dataset_loaded": err == nil,
		"timestamp":      time.Now().Format(time.RFC3339),
		"version":        Version,
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Stats())
}

// Version is reported by the health endpoint and overridden at link time.
var Version = "1.0.0"
