package handlers

import (
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

var fragmentFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
	"cell": func(d *decimal.Decimal) string {
		if d == nil {
			return "-"
		}
		return d.StringFixed(2)
	},
	"inc": func(i int) int {
		return i + 1
	},
	// share is d as a percentage of the largest value, for bar widths.
	"share": func(d, top decimal.Decimal) string {
		if !top.IsPositive() {
			return "0"
		}
		return d.Div(top).Mul(decimal.NewFromInt(100)).StringFixed(1)
	},
}

var fragments = template.Must(template.New("fragments").Funcs(fragmentFuncs).Parse(`
{{define "trends"}}<div id="trends-content">
<table class="modern-table">
<thead><tr><th>Month</th>{{range .Trend.Years}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Pivot}}<tr><td>{{.MonthName}}</td>{{range .Sales}}<td>{{cell .}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
<h3>All months</h3>
<table class="modern-table">
<thead><tr><th>Month</th><th>Sales</th></tr></thead>
<tbody>
{{range .Overall}}<tr><td>{{.MonthYear}}</td><td>{{money .Sales}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "regional"}}<div id="regional-content">
<table class="modern-table">
<thead><tr><th>#</th><th>City</th><th>State</th><th>Sales</th></tr></thead>
<tbody>
{{range $i, $c := .View.TopCities}}<tr>
<td>{{inc $i}}</td>
<td>{{$c.City}}</td>
<td>{{$c.State}}</td>
<td><strong>${{money $c.Sales}}</strong></td>
</tr>
{{else}}<tr><td colspan="4">No sales for this selection</td></tr>
{{end}}</tbody>
</table>
<p class="muted">{{len .View.Locations}} order locations</p>
<table class="modern-table">
<thead><tr><th>Region</th><th>State</th><th>Sales</th></tr></thead>
<tbody>
{{range .View.RegionStates}}<tr><td>{{.Region}}</td><td>{{.State}}</td><td>{{money .Sales}}</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "bars"}}<div class="bars">
{{$top := .Max}}{{range .Groups}}<div class="bar-row">
<span class="bar-label">{{.Key}}</span>
<span class="bar" style="width: {{share .Sales $top}}%"></span>
<span class="bar-value">${{money .Sales}}</span>
</div>
{{else}}<p class="muted">No sales for this selection</p>
{{end}}</div>{{end}}

{{define "products"}}<div id="products-content">
<h3>By category</h3>
{{template "bars" .Categories}}
<h3>By customer type</h3>
{{template "bars" .CustomerTypes}}
</div>{{end}}

{{define "repeat"}}<div id="repeat-content">
{{template "bars" .}}
</div>{{end}}

{{define "error"}}<div id="dashboard-error" class="error-banner">{{.}}</div>{{end}}
{{define "clear-error"}}<div id="dashboard-error"></div>{{end}}
`))

type barGroup struct {
	Groups []models.GroupTotal
	Max    decimal.Decimal
}

func newBarGroup(groups []models.GroupTotal) barGroup {
	top := decimal.Zero
	for _, g := range groups {
		if g.Sales.GreaterThan(top) {
			top = g.Sales
		}
	}
	return barGroup{Groups: groups, Max: top}
}

func renderFragment(name string, data any) (string, error) {
	var buf strings.Builder
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderTrends(view models.TrendsView) (string, error) {
	return renderFragment("trends", map[string]any{
		"Trend":   view.MonthlyTrend,
		"Pivot":   view.MonthlyTrend.Pivot(),
		"Overall": view.OverallTrend,
	})
}

func renderRegional(view models.RegionalView) (string, error) {
	return renderFragment("regional", map[string]any{"View": view})
}

func renderProducts(view models.ProductView) (string, error) {
	return renderFragment("products", map[string]any{
		"Categories":    newBarGroup(view.Categories),
		"CustomerTypes": newBarGroup(view.CustomerTypes),
	})
}

func renderRepeatCustomers(view models.RepeatCustomerView) (string, error) {
	return renderFragment("repeat", newBarGroup(view.Breakdown))
}
