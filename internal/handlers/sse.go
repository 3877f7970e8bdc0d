package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

// selectionSignals mirrors the filter signals held by the page. A nil
// list was never sent; an empty one was cleared by the user.
type selectionSignals struct {
	Years         *[]json.Number `json:"years"`
	CustomerTypes *[]string      `json:"customer_types"`
	Categories    *[]string      `json:"categories"`
	States        []string       `json:"states"`
	Months        []string       `json:"months"`
	TopN          json.Number    `json:"top_n"`
}

// values re-expresses the signals as query parameters so that both the
// JSON API and the SSE endpoints share one parser.
func (s selectionSignals) values() url.Values {
	v := url.Values{}
	if s.Years != nil {
		v[services.ParamYears] = []string{}
		for _, y := range *s.Years {
			v.Add(services.ParamYears, y.String())
		}
	}
	setList := func(key string, list *[]string) {
		if list != nil {
			v[key] = append([]string{}, *list...)
		}
	}
	setList(services.ParamCustomerTypes, s.CustomerTypes)
	setList(services.ParamCategories, s.Categories)
	setList(services.ParamStates, &s.States)
	setList(services.ParamMonths, &s.Months)
	if s.TopN != "" {
		v.Set(services.ParamTopN, s.TopN.String())
	}
	return v
}

type SSEHandlers struct {
	dashboard   *services.Dashboard
	defaultTopN int
	logger      *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, defaultTopN int, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard:   dashboard,
		defaultTopN: defaultTopN,
		logger:      logger,
	}
}

// readQuery takes the selection from Datastar signals when present and
// from plain query parameters otherwise.
func (h *SSEHandlers) readQuery(r *http.Request) (models.ViewQuery, error) {
	if !r.URL.Query().Has("datastar") {
		return viewQuery(r, h.dashboard, h.defaultTopN)
	}

	var signals selectionSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return models.ViewQuery{}, errors.BadRequestWrap(err, "Invalid dashboard signals")
	}

	opts, err := h.dashboard.Options()
	if err != nil {
		return models.ViewQuery{}, err
	}
	q, err := services.ParseViewQuery(signals.values(), opts, h.defaultTopN)
	if err != nil {
		return models.ViewQuery{}, errors.BadRequestWrap(err, err.Error())
	}
	return q, nil
}

// patchError shows err in the page's error banner. SSE responses are
// already committed to 200, so failures are reported in-band.
func (h *SSEHandlers) patchError(sse *datastar.ServerSentEventGenerator, r *http.Request, err error) {
	appErr := errors.FromError(toAppError(err))
	h.logger.Warn("view update failed",
		"path", r.URL.Path,
		"error_code", appErr.Code,
		"error", err,
		"request_id", observability.GetRequestID(r.Context()),
	)

	html, renderErr := renderFragment("error", appErr.Message)
	if renderErr != nil {
		h.logger.Error("render error banner", "error", renderErr)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Debug("patch error banner", "error", err)
	}
}

// patch sends signals then each rendered fragment, clearing the error
// banner first. View signals are underscore-prefixed so the browser keeps
// them local instead of echoing them back on the next request.
func (h *SSEHandlers) patch(sse *datastar.ServerSentEventGenerator, signals map[string]any, fragments ...string) error {
	banner, err := renderFragment("clear-error", nil)
	if err != nil {
		return err
	}
	if err := sse.PatchElements(banner); err != nil {
		return err
	}

	payload, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	if err := sse.PatchSignals(payload); err != nil {
		return err
	}

	for _, html := range fragments {
		if err := sse.PatchElements(html); err != nil {
			return err
		}
	}
	return nil
}

// stream runs one view update: parse the selection, compute, render and
// patch.
func (h *SSEHandlers) stream(w http.ResponseWriter, r *http.Request, update func(models.ViewQuery) (map[string]any, []string, error)) {
	q, queryErr := h.readQuery(r)

	sse := datastar.NewSSE(w, r)
	if queryErr != nil {
		h.patchError(sse, r, queryErr)
		return
	}

	signals, fragments, err := update(q)
	if err != nil {
		h.patchError(sse, r, err)
		return
	}

	if err := h.patch(sse, signals, fragments...); err != nil {
		h.logger.Error("patch dashboard", "path", r.URL.Path, "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleTrends(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(q models.ViewQuery) (map[string]any, []string, error) {
		view, err := h.dashboard.Trends(q)
		if err != nil {
			return nil, nil, err
		}
		html, err := renderTrends(view)
		if err != nil {
			return nil, nil, err
		}
		return map[string]any{"_trendsData": view}, []string{html}, nil
	})
}

func (h *SSEHandlers) HandleRegional(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(q models.ViewQuery) (map[string]any, []string, error) {
		view, err := h.dashboard.Regional(q)
		if err != nil {
			return nil, nil, err
		}
		html, err := renderRegional(view)
		if err != nil {
			return nil, nil, err
		}
		return map[string]any{"_regionalData": view}, []string{html}, nil
	})
}

func (h *SSEHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(q models.ViewQuery) (map[string]any, []string, error) {
		view, err := h.dashboard.Products(q)
		if err != nil {
			return nil, nil, err
		}
		html, err := renderProducts(view)
		if err != nil {
			return nil, nil, err
		}
		return map[string]any{"_productsData": view}, []string{html}, nil
	})
}

func (h *SSEHandlers) HandleRepeatCustomers(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(q models.ViewQuery) (map[string]any, []string, error) {
		view, err := h.dashboard.RepeatCustomers(q)
		if err != nil {
			return nil, nil, err
		}
		html, err := renderRepeatCustomers(view)
		if err != nil {
			return nil, nil, err
		}
		return map[string]any{"_repeatData": view}, []string{html}, nil
	})
}

// HandleRefreshAll recomputes every view for the current selection in one
// pass.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(q models.ViewQuery) (map[string]any, []string, error) {
		views, err := h.dashboard.Views(q)
		if err != nil {
			return nil, nil, err
		}

		renderers := []func() (string, error){
			func() (string, error) { return renderTrends(views.Trends) },
			func() (string, error) { return renderRegional(views.Regional) },
			func() (string, error) { return renderProducts(views.Products) },
			func() (string, error) { return renderRepeatCustomers(views.RepeatCustomers) },
		}
		fragments := make([]string, 0, len(renderers))
		for _, render := range renderers {
			html, err := render()
			if err != nil {
				return nil, nil, err
			}
			fragments = append(fragments, html)
		}

		return map[string]any{
			"_filteredRecords": views.FilteredRecords,
			"_trendsData":      views.Trends,
			"_regionalData":    views.Regional,
			"_productsData":    views.Products,
			"_repeatData":      views.RepeatCustomers,
		}, fragments, nil
	})
}
