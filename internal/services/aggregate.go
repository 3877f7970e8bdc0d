package services

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

var monthOrdinals = func() map[string]int {
	m := make(map[string]int, 26)
	for i := time.January; i <= time.December; i++ {
		name := strings.ToLower(i.String())
		m[name] = int(i)
		m[name[:3]] = int(i)
	}
	m["sept"] = int(time.September)
	return m
}()

// MonthOrdinal maps a full or abbreviated English month name to 1..12, or 0
// when the name is not recognised.
func MonthOrdinal(name string) int {
	return monthOrdinals[strings.ToLower(strings.TrimSpace(name))]
}

// groupSums accumulates sales per key, remembering first-seen key order.
type groupSums[K comparable] struct {
	order []K
	sums  map[K]decimal.Decimal
}

func sumBy[K comparable](records []models.SalesRecord, key func(models.SalesRecord) K) groupSums[K] {
	g := groupSums[K]{sums: make(map[K]decimal.Decimal)}
	for _, r := range records {
		k := key(r)
		sum, ok := g.sums[k]
		if !ok {
			g.order = append(g.order, k)
			sum = decimal.Zero
		}
		g.sums[k] = sum.Add(r.Sales)
	}
	return g
}

type monthYearKey struct {
	monthName string
	year      int
}

// MonthlyTrendByYear sums sales per (month_name, year) and reshapes the
// result into one series per year, ordered by year. Points within a series
// follow calendar order.
func MonthlyTrendByYear(records []models.SalesRecord) models.MonthlyTrend {
	ordinals := make(map[string]int)
	for _, r := range records {
		if _, ok := ordinals[r.MonthName]; ok {
			continue
		}
		ord := MonthOrdinal(r.MonthName)
		if ord == 0 {
			ord = r.Month
		}
		ordinals[r.MonthName] = ord
	}

	groups := sumBy(records, func(r models.SalesRecord) monthYearKey {
		return monthYearKey{monthName: r.MonthName, year: r.Year}
	})

	byYear := make(map[int][]models.MonthPoint)
	for _, k := range groups.order {
		byYear[k.year] = append(byYear[k.year], models.MonthPoint{
			MonthName:    k.monthName,
			MonthOrdinal: ordinals[k.monthName],
			Year:         k.year,
			Sales:        groups.sums[k],
		})
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	slices.Sort(years)

	trend := models.MonthlyTrend{
		Years:  years,
		Series: make([]models.YearSeries, 0, len(years)),
	}
	for _, y := range years {
		points := byYear[y]
		slices.SortStableFunc(points, func(a, b models.MonthPoint) int {
			if c := cmp.Compare(a.MonthOrdinal, b.MonthOrdinal); c != 0 {
				return c
			}
			return cmp.Compare(a.MonthName, b.MonthName)
		})
		trend.Series = append(trend.Series, models.YearSeries{Year: y, Points: points})
	}
	return trend
}

// OverallMonthlyTrend sums sales per month_year label and orders the labels
// by the earliest order date seen for each.
func OverallMonthlyTrend(records []models.SalesRecord) []models.MonthYearTotal {
	first := make(map[string]time.Time)
	for _, r := range records {
		if t, ok := first[r.MonthYear]; !ok || r.OrderDate.Before(t) {
			first[r.MonthYear] = r.OrderDate
		}
	}
	groups := sumBy(records, func(r models.SalesRecord) string { return r.MonthYear })

	result := make([]models.MonthYearTotal, 0, len(groups.order))
	for _, label := range groups.order {
		result = append(result, models.MonthYearTotal{
			MonthYear:      label,
			FirstOrderDate: first[label],
			Sales:          groups.sums[label],
		})
	}
	slices.SortStableFunc(result, func(a, b models.MonthYearTotal) int {
		return a.FirstOrderDate.Compare(b.FirstOrderDate)
	})
	return result
}

type stateCityKey struct {
	state string
	city  string
}

// TopNCities restricts records to states (when given), sums sales per
// (state, city) and returns the n largest. Equal sales keep the order in
// which the pairs were first encountered.
func TopNCities(records []models.SalesRecord, states []string, n int) ([]models.CitySales, error) {
	if n < models.MinTopN || n > models.MaxTopN {
		return nil, fmt.Errorf("top n must be between %d and %d, got %d", models.MinTopN, models.MaxTopN, n)
	}

	groups := sumBy(RestrictStates(records, states), func(r models.SalesRecord) stateCityKey {
		return stateCityKey{state: r.State, city: r.City}
	})

	result := make([]models.CitySales, 0, len(groups.order))
	for _, k := range groups.order {
		result = append(result, models.CitySales{State: k.state, City: k.city, Sales: groups.sums[k]})
	}
	slices.SortStableFunc(result, func(a, b models.CitySales) int {
		return b.Sales.Cmp(a.Sales)
	})

	if len(result) > n {
		result = result[:n]
	}
	return result, nil
}

// LocationPoints returns the coordinates of every record in the given
// states (or all records), in input order.
func LocationPoints(records []models.SalesRecord, states []string) []models.LocationPoint {
	restricted := RestrictStates(records, states)
	points := make([]models.LocationPoint, 0, len(restricted))
	for _, r := range restricted {
		points = append(points, models.LocationPoint{Latitude: r.Latitude, Longitude: r.Longitude})
	}
	return points
}

type regionStateKey struct {
	region string
	state  string
}

// RegionStateBreakdown sums sales per (region, state), ordered by region
// then state.
func RegionStateBreakdown(records []models.SalesRecord) []models.RegionStateSales {
	groups := sumBy(records, func(r models.SalesRecord) regionStateKey {
		return regionStateKey{region: r.Region, state: r.State}
	})

	result := make([]models.RegionStateSales, 0, len(groups.order))
	for _, k := range groups.order {
		result = append(result, models.RegionStateSales{Region: k.region, State: k.state, Sales: groups.sums[k]})
	}
	slices.SortStableFunc(result, func(a, b models.RegionStateSales) int {
		if c := cmp.Compare(a.Region, b.Region); c != 0 {
			return c
		}
		return cmp.Compare(a.State, b.State)
	})
	return result
}

// GroupSum sums sales per key and returns the groups ordered by key.
func GroupSum(records []models.SalesRecord, key func(models.SalesRecord) string) []models.GroupTotal {
	groups := sumBy(records, key)

	keys := slices.Clone(groups.order)
	slices.Sort(keys)

	result := make([]models.GroupTotal, 0, len(keys))
	for _, k := range keys {
		result = append(result, models.GroupTotal{Key: k, Sales: groups.sums[k]})
	}
	return result
}

func CategoryBreakdown(records []models.SalesRecord) []models.GroupTotal {
	return GroupSum(records, func(r models.SalesRecord) string { return r.Category })
}

func SegmentBreakdown(records []models.SalesRecord) []models.GroupTotal {
	return GroupSum(records, func(r models.SalesRecord) string { return r.CustomerType })
}

// RepeatCustomerBreakdown sums sales for new (flag 0) and repeat (flag 1)
// customers. Any other flag value is rejected.
func RepeatCustomerBreakdown(records []models.SalesRecord) ([]models.GroupTotal, error) {
	for _, r := range records {
		if r.RepeatCustomerFlag != models.NewCustomerFlag && r.RepeatCustomerFlag != models.RepeatCustomerFlag {
			return nil, &models.RepeatFlagError{Flag: r.RepeatCustomerFlag}
		}
	}

	groups := sumBy(records, func(r models.SalesRecord) int { return r.RepeatCustomerFlag })

	result := make([]models.GroupTotal, 0, 2)
	for _, flag := range []int{models.NewCustomerFlag, models.RepeatCustomerFlag} {
		sum, ok := groups.sums[flag]
		if !ok {
			continue
		}
		result = append(result, models.GroupTotal{Key: RepeatCustomerLabel(flag), Sales: sum})
	}
	return result, nil
}

// RepeatCustomerLabel returns the display label for a repeat flag.
func RepeatCustomerLabel(flag int) string {
	if flag == models.RepeatCustomerFlag {
		return models.RepeatCustomerLabel
	}
	return models.NewCustomerLabel
}
