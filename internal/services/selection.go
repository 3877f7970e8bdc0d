package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sales-dashboard/internal/models"
)

const (
	ParamYears         = "years"
	ParamCustomerTypes = "customer_types"
	ParamCategories    = "categories"
	ParamStates        = "states"
	ParamMonths        = "months"
	ParamTopN          = "top_n"
)

// ParseViewQuery builds a ViewQuery from request parameters. Values may be
// repeated or comma separated. A required list that is absent selects every
// option; one that is present but empty selects nothing.
func ParseViewQuery(values url.Values, opts models.FilterOptions, defaultTopN int) (models.ViewQuery, error) {
	q := models.ViewQuery{
		Selection: DefaultSelection(opts),
		TopN:      defaultTopN,
	}

	if values.Has(ParamYears) {
		years := make([]int, 0)
		for _, v := range listParam(values, ParamYears) {
			y, err := strconv.Atoi(v)
			if err != nil {
				return models.ViewQuery{}, fmt.Errorf("invalid year %q", v)
			}
			years = append(years, y)
		}
		q.Selection.Years = years
	}
	if values.Has(ParamCustomerTypes) {
		q.Selection.CustomerTypes = listParam(values, ParamCustomerTypes)
	}
	if values.Has(ParamCategories) {
		q.Selection.Categories = listParam(values, ParamCategories)
	}
	q.Selection.States = listParam(values, ParamStates)
	q.Selection.Months = listParam(values, ParamMonths)

	if raw := strings.TrimSpace(values.Get(ParamTopN)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.ViewQuery{}, fmt.Errorf("invalid top_n %q", raw)
		}
		q.TopN = n
	}
	if q.TopN < models.MinTopN || q.TopN > models.MaxTopN {
		return models.ViewQuery{}, fmt.Errorf("top_n must be between %d and %d, got %d", models.MinTopN, models.MaxTopN, q.TopN)
	}

	return q, nil
}

func listParam(values url.Values, key string) []string {
	result := make([]string, 0)
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}
