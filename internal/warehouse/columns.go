package warehouse

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const (
	ColCity               = "CITY"
	ColState              = "STATE"
	ColRegion             = "REGION"
	ColOrderDate          = "ORDER_DATE"
	ColYear               = "YEAR"
	ColMonth              = "MONTH"
	ColDayName            = "DAY_NAME"
	ColMonthName          = "MONTH_NAME"
	ColOrderMonth         = "ORDER_MONTH"
	ColCategory           = "CATEGORY"
	ColSubCategory        = "SUB_CATEGORY"
	ColSegment            = "SEGMENT"
	ColCustomerType       = "CUSTOMER_TYPE"
	ColRepeatCustomerFlag = "REPEAT_CUSTOMER_FLAG"
	ColLatitude           = "LATITUDE"
	ColLongitude          = "LONGITUDE"
	ColSales              = "SALES"
)

// Columns is the input contract: every loaded table must carry these.
var Columns = []string{
	ColCity, ColState, ColRegion, ColOrderDate, ColYear, ColMonth,
	ColDayName, ColMonthName, ColOrderMonth, ColCategory, ColSubCategory,
	ColSegment, ColCustomerType, ColRepeatCustomerFlag, ColLatitude,
	ColLongitude, ColSales,
}

// columnIndex maps a contract column to its position in the source.
type columnIndex map[string]int

// resolveColumns matches header names case-insensitively. Extra columns are
// ignored; any missing contract column is a SchemaError.
func resolveColumns(source string, header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	idx := make(columnIndex, len(Columns))
	var missing []string
	for _, col := range Columns {
		pos, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = pos
	}

	if len(missing) > 0 {
		return nil, &models.SchemaError{Source: source, Missing: missing}
	}
	return idx, nil
}

var errEmptyValue = errors.New("empty value")

// decodeRow converts one source row. value returns the trimmed text of a
// column; orderDate is passed through untouched for the date enricher.
func decodeRow(row int, orderDate any, value func(col string) string) (models.RawSalesRow, error) {
	fail := func(col string, err error) (models.RawSalesRow, error) {
		return models.RawSalesRow{}, &models.DataFormatError{Row: row, Column: col, Value: value(col), Err: err}
	}

	year, err := parseInt(value(ColYear))
	if err != nil {
		return fail(ColYear, err)
	}
	month, err := parseInt(value(ColMonth))
	if err != nil {
		return fail(ColMonth, err)
	}
	flag, err := parseFlag(value(ColRepeatCustomerFlag))
	if err != nil {
		return fail(ColRepeatCustomerFlag, err)
	}
	lat, err := parseCoordinate(value(ColLatitude))
	if err != nil {
		return fail(ColLatitude, err)
	}
	lon, err := parseCoordinate(value(ColLongitude))
	if err != nil {
		return fail(ColLongitude, err)
	}
	sales, err := parseSales(value(ColSales))
	if err != nil {
		return fail(ColSales, err)
	}

	return models.RawSalesRow{
		City:               value(ColCity),
		State:              value(ColState),
		Region:             value(ColRegion),
		OrderDate:          orderDate,
		Year:               year,
		Month:              month,
		DayName:            value(ColDayName),
		MonthName:          value(ColMonthName),
		OrderMonth:         value(ColOrderMonth),
		Category:           value(ColCategory),
		SubCategory:        value(ColSubCategory),
		Segment:            value(ColSegment),
		CustomerType:       value(ColCustomerType),
		RepeatCustomerFlag: flag,
		Latitude:           lat,
		Longitude:          lon,
		Sales:              sales,
	}, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, errEmptyValue
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	// Warehouses often export integer dimensions as "2024.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, errors.New("not an integer")
	}
	return int(f), nil
}

// parseFlag accepts 0/1 and true/false; anything else is rejected rather
// than coerced.
func parseFlag(s string) (int, error) {
	switch strings.ToLower(s) {
	case "0", "false", "0.0":
		return models.NewCustomerFlag, nil
	case "1", "true", "1.0":
		return models.RepeatCustomerFlag, nil
	case "":
		return 0, errEmptyValue
	default:
		return 0, errors.New("repeat customer flag must be 0 or 1")
	}
}

// parseCoordinate treats an empty value as 0 since a missing location only
// affects the map view.
func parseCoordinate(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseSales(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, errEmptyValue
	}
	return decimal.NewFromString(s)
}
