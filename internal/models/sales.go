package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawSalesRow is one row of the joined warehouse table as delivered by a
// loader. OrderDate is left in whatever representation the source produced.
type RawSalesRow struct {
	City               string
	State              string
	Region             string
	OrderDate          any
	Year               int
	Month              int
	DayName            string
	MonthName          string
	OrderMonth         string
	Category           string
	SubCategory        string
	Segment            string
	CustomerType       string
	RepeatCustomerFlag int
	Latitude           float64
	Longitude          float64
	Sales              decimal.Decimal
}

// SalesRecord is an enriched, read-only row of the dataset.
type SalesRecord struct {
	City               string          `json:"city"`
	State              string          `json:"state"`
	Region             string          `json:"region"`
	OrderDate          time.Time       `json:"order_date"`
	Year               int             `json:"year"`
	Month              int             `json:"month"`
	DayName            string          `json:"day_name"`
	MonthName          string          `json:"month_name"`
	OrderMonth         string          `json:"order_month"`
	Category           string          `json:"category"`
	SubCategory        string          `json:"sub_category"`
	Segment            string          `json:"segment"`
	CustomerType       string          `json:"customer_type"`
	RepeatCustomerFlag int             `json:"repeat_customer_flag"`
	Latitude           float64         `json:"latitude"`
	Longitude          float64         `json:"longitude"`
	Sales              decimal.Decimal `json:"sales"`
	MonthYear          string          `json:"month_year"`
}

const (
	NewCustomerFlag    = 0
	RepeatCustomerFlag = 1

	NewCustomerLabel    = "New Customer"
	RepeatCustomerLabel = "Repeat Customer"
)
