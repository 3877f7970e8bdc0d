package models

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type MonthPoint struct {
	MonthName    string          `json:"month_name"`
	MonthOrdinal int             `json:"month_ordinal"`
	Year         int             `json:"year"`
	Sales        decimal.Decimal `json:"sales"`
}

// YearSeries is one line of the monthly trend chart.
type YearSeries struct {
	Year   int          `json:"year"`
	Points []MonthPoint `json:"points"`
}

type MonthlyTrend struct {
	Years  []int        `json:"years"`
	Series []YearSeries `json:"series"`
}

// PivotRow is one month of the wide trend table. Sales is aligned with
// MonthlyTrend.Years; a nil cell means the year had no sales that month.
type PivotRow struct {
	MonthName    string             `json:"month_name"`
	MonthOrdinal int                `json:"month_ordinal"`
	Sales        []*decimal.Decimal `json:"sales"`
}

// Pivot reshapes the per-year series into one row per month, in calendar
// order.
func (t MonthlyTrend) Pivot() []PivotRow {
	column := make(map[int]int, len(t.Years))
	for i, y := range t.Years {
		column[y] = i
	}

	rows := make([]PivotRow, 0)
	index := make(map[string]int)
	for _, s := range t.Series {
		for _, p := range s.Points {
			i, ok := index[p.MonthName]
			if !ok {
				i = len(rows)
				index[p.MonthName] = i
				rows = append(rows, PivotRow{
					MonthName:    p.MonthName,
					MonthOrdinal: p.MonthOrdinal,
					Sales:        make([]*decimal.Decimal, len(t.Years)),
				})
			}
			v := p.Sales
			rows[i].Sales[column[s.Year]] = &v
		}
	}

	sortPivotRows(rows)
	return rows
}

func sortPivotRows(rows []PivotRow) {
	slices.SortStableFunc(rows, func(a, b PivotRow) int {
		if c := cmp.Compare(a.MonthOrdinal, b.MonthOrdinal); c != 0 {
			return c
		}
		return cmp.Compare(a.MonthName, b.MonthName)
	})
}

type MonthYearTotal struct {
	MonthYear      string          `json:"month_year"`
	FirstOrderDate time.Time       `json:"first_order_date"`
	Sales          decimal.Decimal `json:"sales"`
}

type CitySales struct {
	State string          `json:"state"`
	City  string          `json:"city"`
	Sales decimal.Decimal `json:"sales"`
}

type RegionStateSales struct {
	Region string          `json:"region"`
	State  string          `json:"state"`
	Sales  decimal.Decimal `json:"sales"`
}

// GroupTotal is a single-key group-by-sum result.
type GroupTotal struct {
	Key   string          `json:"key"`
	Sales decimal.Decimal `json:"sales"`
}

type LocationPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type TrendsView struct {
	MonthlyTrend MonthlyTrend     `json:"monthly_trend"`
	OverallTrend []MonthYearTotal `json:"overall_trend"`
}

type RegionalView struct {
	TopCities    []CitySales        `json:"top_cities"`
	Locations    []LocationPoint    `json:"locations"`
	RegionStates []RegionStateSales `json:"region_states"`
}

type ProductView struct {
	Categories    []GroupTotal `json:"categories"`
	CustomerTypes []GroupTotal `json:"customer_types"`
}

type RepeatCustomerView struct {
	Breakdown []GroupTotal `json:"breakdown"`
}

// DashboardViews is the output of one recomputation pass.
type DashboardViews struct {
	Query           ViewQuery          `json:"query"`
	FilteredRecords int                `json:"filtered_records"`
	Trends          TrendsView         `json:"trends"`
	Regional        RegionalView       `json:"regional"`
	Products        ProductView        `json:"products"`
	RepeatCustomers RepeatCustomerView `json:"repeat_customers"`
}
