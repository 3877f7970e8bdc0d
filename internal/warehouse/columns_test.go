package warehouse

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

func TestResolveColumns(t *testing.T) {
	header := append([]string{"\ufeffcity", "EXTRA"}, Columns[1:]...)
	header[5] = " year "

	idx, err := resolveColumns("test", header)
	if err != nil {
		t.Fatalf("resolveColumns() error = %v", err)
	}
	if idx[ColCity] != 0 {
		t.Errorf("CITY at %d, want 0", idx[ColCity])
	}
	if idx[ColState] != 2 {
		t.Errorf("STATE at %d, want 2", idx[ColState])
	}
}

func TestResolveColumns_Missing(t *testing.T) {
	_, err := resolveColumns("csv:x.csv", []string{"CITY", "STATE", "SALES"})

	var schemaErr *models.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error = %v, want SchemaError", err)
	}
	if schemaErr.Source != "csv:x.csv" {
		t.Errorf("Source = %q", schemaErr.Source)
	}
	if len(schemaErr.Missing) != len(Columns)-3 {
		t.Errorf("Missing = %v", schemaErr.Missing)
	}
}

func rowValues(overrides map[string]string) func(string) string {
	base := map[string]string{
		ColCity: "Austin", ColState: "Texas", ColRegion: "Central",
		ColOrderDate: "2024-01-03", ColYear: "2024", ColMonth: "1",
		ColDayName: "Wednesday", ColMonthName: "Jan", ColOrderMonth: "2024-01",
		ColCategory: "Technology", ColSubCategory: "Phones", ColSegment: "Consumer",
		ColCustomerType: "Consumer", ColRepeatCustomerFlag: "1",
		ColLatitude: "30.27", ColLongitude: "-97.74", ColSales: "120.50",
	}
	for k, v := range overrides {
		base[k] = v
	}
	return func(col string) string { return base[col] }
}

func TestDecodeRow(t *testing.T) {
	got, err := decodeRow(1, "2024-01-03", rowValues(nil))
	if err != nil {
		t.Fatalf("decodeRow() error = %v", err)
	}

	want := models.RawSalesRow{
		City: "Austin", State: "Texas", Region: "Central",
		OrderDate: "2024-01-03", Year: 2024, Month: 1,
		DayName: "Wednesday", MonthName: "Jan", OrderMonth: "2024-01",
		Category: "Technology", SubCategory: "Phones", Segment: "Consumer",
		CustomerType: "Consumer", RepeatCustomerFlag: 1,
		Latitude: 30.27, Longitude: -97.74, Sales: decimal.RequireFromString("120.50"),
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("decodeRow() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRow_Lenient(t *testing.T) {
	got, err := decodeRow(1, nil, rowValues(map[string]string{
		ColYear:               "2024.0",
		ColRepeatCustomerFlag: "false",
		ColLatitude:           "",
		ColLongitude:          "",
	}))
	if err != nil {
		t.Fatalf("decodeRow() error = %v", err)
	}
	if got.Year != 2024 || got.RepeatCustomerFlag != 0 || got.Latitude != 0 || got.Longitude != 0 {
		t.Errorf("row = %+v", got)
	}
}

func TestDecodeRow_Invalid(t *testing.T) {
	tests := []struct {
		column string
		value  string
	}{
		{ColYear, ""},
		{ColYear, "twenty"},
		{ColYear, "2024.5"},
		{ColMonth, "x"},
		{ColRepeatCustomerFlag, "2"},
		{ColRepeatCustomerFlag, ""},
		{ColLatitude, "north"},
		{ColSales, ""},
		{ColSales, "$12"},
	}

	for _, tt := range tests {
		t.Run(tt.column+"="+tt.value, func(t *testing.T) {
			_, err := decodeRow(7, nil, rowValues(map[string]string{tt.column: tt.value}))

			var formatErr *models.DataFormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("error = %v, want DataFormatError", err)
			}
			if formatErr.Row != 7 || formatErr.Column != tt.column || formatErr.Value != tt.value {
				t.Errorf("DataFormatError = %+v", formatErr)
			}
		})
	}
}
