package services

import (
	"slices"

	"sales-dashboard/internal/models"
)

// Filter returns the records retained by sel, in input order. The result is
// never nil.
func Filter(records []models.SalesRecord, sel models.FilterSelection) []models.SalesRecord {
	years := toSet(sel.Years)
	types := toSet(sel.CustomerTypes)
	categories := toSet(sel.Categories)
	states := toSet(sel.States)
	months := toSet(sel.Months)

	result := make([]models.SalesRecord, 0)
	if len(years) == 0 || len(types) == 0 || len(categories) == 0 {
		return result
	}

	for _, r := range records {
		if !years[r.Year] || !types[r.CustomerType] || !categories[r.Category] {
			continue
		}
		if len(states) > 0 && !states[r.State] {
			continue
		}
		if len(months) > 0 && !months[r.MonthName] {
			continue
		}
		result = append(result, r)
	}
	return result
}

// RestrictStates applies only the states overlay; an empty list keeps every
// record.
func RestrictStates(records []models.SalesRecord, states []string) []models.SalesRecord {
	if len(states) == 0 {
		return records
	}
	set := toSet(states)
	result := make([]models.SalesRecord, 0)
	for _, r := range records {
		if set[r.State] {
			result = append(result, r)
		}
	}
	return result
}

// Options lists the distinct, sorted filter values present in records.
// Empty strings are skipped.
func Options(records []models.SalesRecord) models.FilterOptions {
	years := make(map[int]bool)
	types := make(map[string]bool)
	categories := make(map[string]bool)
	states := make(map[string]bool)
	months := make(map[string]bool)

	for _, r := range records {
		years[r.Year] = true
		addNonEmpty(types, r.CustomerType)
		addNonEmpty(categories, r.Category)
		addNonEmpty(states, r.State)
		addNonEmpty(months, r.MonthName)
	}

	return models.FilterOptions{
		Years:         sortedKeys(years),
		CustomerTypes: sortedKeys(types),
		Categories:    sortedKeys(categories),
		States:        sortedKeys(states),
		Months:        sortedKeys(months),
	}
}

// DefaultSelection selects every available year, customer type and
// category, with no overlays.
func DefaultSelection(opts models.FilterOptions) models.FilterSelection {
	return models.FilterSelection{
		Years:         slices.Clone(opts.Years),
		CustomerTypes: slices.Clone(opts.CustomerTypes),
		Categories:    slices.Clone(opts.Categories),
	}
}

func toSet[T comparable](items []T) map[T]bool {
	set := make(map[T]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func addNonEmpty(set map[string]bool, v string) {
	if v != "" {
		set[v] = true
	}
}

func sortedKeys[T int | string](set map[T]bool) []T {
	keys := make([]T, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
