package services

import (
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// record builds an enriched record; fields not given are filled from the
// order date.
func record(date time.Time, state, city, customerType, category string, flag int, sales string) models.SalesRecord {
	return models.SalesRecord{
		City:               city,
		State:              state,
		Region:             regionOf(state),
		OrderDate:          date,
		Year:               date.Year(),
		Month:              int(date.Month()),
		DayName:            date.Weekday().String(),
		MonthName:          date.Format("Jan"),
		OrderMonth:         date.Format("2006-01"),
		Category:           category,
		SubCategory:        category + " Accessories",
		Segment:            customerType,
		CustomerType:       customerType,
		RepeatCustomerFlag: flag,
		Latitude:           float64(len(city)),
		Longitude:          -float64(len(state)),
		Sales:              dec(sales),
		MonthYear:          MonthYear(date),
	}
}

func regionOf(state string) string {
	switch state {
	case "California", "Washington":
		return "West"
	case "Texas":
		return "Central"
	default:
		return "East"
	}
}

func fixtureRecords() []models.SalesRecord {
	return []models.SalesRecord{
		record(day(2023, time.December, 20), "California", "Los Angeles", "Consumer", "Technology", 0, "120.50"),
		record(day(2023, time.December, 28), "Texas", "Houston", "Corporate", "Furniture", 1, "80"),
		record(day(2024, time.January, 3), "California", "San Francisco", "Consumer", "Technology", 1, "200"),
		record(day(2024, time.January, 15), "New York", "New York City", "Home Office", "Office Supplies", 0, "45.25"),
		record(day(2024, time.February, 9), "Texas", "Dallas", "Consumer", "Furniture", 1, "310"),
		record(day(2024, time.March, 1), "California", "Los Angeles", "Corporate", "Technology", 0, "99.99"),
		record(day(2023, time.March, 14), "Washington", "Seattle", "Consumer", "Office Supplies", 1, "15"),
		record(day(2023, time.January, 7), "New York", "Buffalo", "Corporate", "Technology", 0, "60"),
	}
}

func allSelection() models.FilterSelection {
	return DefaultSelection(Options(fixtureRecords()))
}

func total(records []models.SalesRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Sales)
	}
	return sum
}
