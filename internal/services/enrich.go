package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

const monthYearLayout = "Jan-2006"

var orderDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"01/02/2006",
	"2006/01/02",
	"20060102",
}

var errUnsupportedDate = errors.New("unsupported date representation")

// MonthYear formats an order date as its categorical month label, e.g.
// "Jan-2024".
func MonthYear(t time.Time) string {
	return t.Format(monthYearLayout)
}

// ParseOrderDate normalises a raw order date.
func ParseOrderDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, errUnsupportedDate
		}
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, errUnsupportedDate
		}
		return ParseOrderDate(*v)
	case []byte:
		return parseDateString(string(v))
	case string:
		return parseDateString(v)
	default:
		return time.Time{}, errUnsupportedDate
	}
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errUnsupportedDate
}

// Enrich parses every order date and derives its month_year label. A
// single unparseable date fails the whole batch.
func Enrich(rows []models.RawSalesRow) ([]models.SalesRecord, error) {
	records := make([]models.SalesRecord, len(rows))
	for i, row := range rows {
		orderDate, err := ParseOrderDate(row.OrderDate)
		if err != nil {
			return nil, &models.DataFormatError{
				Row:    i + 1,
				Column: "ORDER_DATE",
				Value:  fmt.Sprint(row.OrderDate),
				Err:    err,
			}
		}

		records[i] = models.SalesRecord{
			City:               row.City,
			State:              row.State,
			Region:             row.Region,
			OrderDate:          orderDate,
			Year:               row.Year,
			Month:              row.Month,
			DayName:            row.DayName,
			MonthName:          row.MonthName,
			OrderMonth:         row.OrderMonth,
			Category:           row.Category,
			SubCategory:        row.SubCategory,
			Segment:            row.Segment,
			CustomerType:       row.CustomerType,
			RepeatCustomerFlag: row.RepeatCustomerFlag,
			Latitude:           row.Latitude,
			Longitude:          row.Longitude,
			Sales:              row.Sales,
			MonthYear:          MonthYear(orderDate),
		}
	}
	return records, nil
}
