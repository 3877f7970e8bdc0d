package templates

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// PageData is everything the dashboard shell needs on first render.
type PageData struct {
	Title     string
	Options   models.FilterOptions
	Selection models.FilterSelection
	TopN      int
	Loaded    bool
}

type pageView struct {
	PageData
	Signals   string
	Script    string
	MinTopN   int
	MaxTopN   int
	YearNames []string
}

var page = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="{{.Script}}"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6f8; color: #1f2933; }
header { padding: 1rem 2rem; background: #1f2933; color: #fff; }
main { display: grid; grid-template-columns: 18rem 1fr; gap: 1.5rem; padding: 1.5rem 2rem; }
aside fieldset { border: 1px solid #d5d9e0; border-radius: 6px; margin-bottom: 1rem; }
section { background: #fff; border-radius: 8px; padding: 1rem 1.5rem; margin-bottom: 1.5rem; box-shadow: 0 1px 2px rgba(0,0,0,.06); }
.modern-table { width: 100%; border-collapse: collapse; }
.modern-table th, .modern-table td { padding: .35rem .6rem; border-bottom: 1px solid #eef0f3; text-align: left; }
.bar-row { display: grid; grid-template-columns: 10rem 1fr 7rem; align-items: center; gap: .5rem; margin: .25rem 0; }
.bar { display: block; height: .9rem; background: #3b82f6; border-radius: 3px; }
.error-banner { background: #fde8e8; color: #9b1c1c; padding: .75rem 1rem; border-radius: 6px; margin: 0 2rem; }
.muted { color: #6b7280; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p class="muted">Sales by month, region, product and customer</p>
</header>
<div id="dashboard-error"></div>
{{if not .Loaded}}<div class="error-banner">Dataset is not loaded yet</div>{{end}}
<main data-signals="{{.Signals}}" data-init="@get('/sse/refresh-all')">
<aside data-on:change="@get('/sse/refresh-all')">
<fieldset><legend>Year</legend>
{{range .YearNames}}<label><input type="checkbox" value="{{.}}" data-bind="years"> {{.}}</label><br>
{{end}}</fieldset>
<fieldset><legend>Customer type</legend>
{{range .Options.CustomerTypes}}<label><input type="checkbox" value="{{.}}" data-bind="customer_types"> {{.}}</label><br>
{{end}}</fieldset>
<fieldset><legend>Category</legend>
{{range .Options.Categories}}<label><input type="checkbox" value="{{.}}" data-bind="categories"> {{.}}</label><br>
{{end}}</fieldset>
<fieldset><legend>State</legend>
<select multiple size="8" data-bind="states">
{{range .Options.States}}<option value="{{.}}">{{.}}</option>
{{end}}</select>
</fieldset>
<fieldset><legend>Month</legend>
{{range .Options.Months}}<label><input type="checkbox" value="{{.}}" data-bind="months"> {{.}}</label>
{{end}}</fieldset>
<fieldset><legend>Top cities</legend>
<input type="range" min="{{.MinTopN}}" max="{{.MaxTopN}}" data-bind="top_n">
<span data-text="$top_n"></span>
</fieldset>
</aside>
<div>
<p class="muted"><span data-text="$_filteredRecords"></span> orders match the selection</p>
<section><h2>Monthly sales by year</h2><div id="trends-content" class="muted">Loading...</div></section>
<section><h2>Top cities</h2><div id="regional-content" class="muted">Loading...</div></section>
<section><h2>Products and customer types</h2><div id="products-content" class="muted">Loading...</div></section>
<section><h2>New and repeat customers</h2><div id="repeat-content" class="muted">Loading...</div></section>
</div>
</main>
</body>
</html>
`))

// Dashboard renders the page shell. Views are filled in over SSE once the
// page loads.
func Dashboard(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := initialSignals(data)
		if err != nil {
			return err
		}

		years := make([]string, 0, len(data.Options.Years))
		for _, y := range data.Options.Years {
			years = append(years, strconv.Itoa(y))
		}

		return page.Execute(w, pageView{
			PageData:  data,
			Signals:   signals,
			Script:    datastarScript,
			MinTopN:   models.MinTopN,
			MaxTopN:   models.MaxTopN,
			YearNames: years,
		})
	})
}

// initialSignals seeds the filter signals with the default selection.
// Years are strings because checkbox bindings produce strings.
func initialSignals(data PageData) (string, error) {
	years := make([]string, 0, len(data.Selection.Years))
	for _, y := range data.Selection.Years {
		years = append(years, strconv.Itoa(y))
	}

	orEmpty := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}

	b, err := json.Marshal(map[string]any{
		"years":            years,
		"customer_types":   orEmpty(data.Selection.CustomerTypes),
		"categories":       orEmpty(data.Selection.Categories),
		"states":           orEmpty(data.Selection.States),
		"months":           orEmpty(data.Selection.Months),
		"top_n":            data.TopN,
		"_filteredRecords": 0,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
