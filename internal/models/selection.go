package models

// FilterSelection holds the inclusion lists chosen by the user.
//
// Years, CustomerTypes and Categories are always applied: an empty list
// selects nothing. States and Months are overlays: an empty list means no
// restriction.
type FilterSelection struct {
	Years         []int    `json:"years"`
	CustomerTypes []string `json:"customer_types"`
	Categories    []string `json:"categories"`
	States        []string `json:"states,omitempty"`
	Months        []string `json:"months,omitempty"`
}

// Primary returns the selection without its overlays.
func (s FilterSelection) Primary() FilterSelection {
	return FilterSelection{
		Years:         s.Years,
		CustomerTypes: s.CustomerTypes,
		Categories:    s.Categories,
	}
}

// WithMonths returns the primary selection restricted to months.
func (s FilterSelection) WithMonths() FilterSelection {
	p := s.Primary()
	p.Months = s.Months
	return p
}

// FilterOptions lists the distinct values available to each filter.
type FilterOptions struct {
	Years         []int    `json:"years"`
	CustomerTypes []string `json:"customer_types"`
	Categories    []string `json:"categories"`
	States        []string `json:"states"`
	Months        []string `json:"months"`
}

// ViewQuery is a selection-changed event: everything needed to recompute
// the dashboard views.
type ViewQuery struct {
	Selection FilterSelection `json:"selection"`
	TopN      int             `json:"top_n"`
}

const (
	MinTopN     = 1
	MaxTopN     = 10
	DefaultTopN = 5
)
