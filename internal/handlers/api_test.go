package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord(date time.Time, state, city, region, customerType, category string, flag int, sales string) models.SalesRecord {
	return models.SalesRecord{
		City:               city,
		State:              state,
		Region:             region,
		OrderDate:          date,
		Year:               date.Year(),
		Month:              int(date.Month()),
		MonthName:          date.Format("Jan"),
		Category:           category,
		CustomerType:       customerType,
		Segment:            customerType,
		RepeatCustomerFlag: flag,
		Latitude:           30,
		Longitude:          -97,
		Sales:              decimal.RequireFromString(sales),
	}
}

func testRecords() []models.SalesRecord {
	return []models.SalesRecord{
		testRecord(time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), "Texas", "Austin", "Central", "Consumer", "Technology", 0, "100"),
		testRecord(time.Date(2023, 2, 11, 0, 0, 0, 0, time.UTC), "Texas", "Houston", "Central", "Corporate", "Furniture", 1, "50"),
		testRecord(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "California", "Fresno", "West", "Consumer", "Technology", 1, "75"),
		testRecord(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), "California", "Fresno", "West", "Home Office", "Office Supplies", 0, "30"),
	}
}

func createTestDashboard() *services.Dashboard {
	d := services.NewDashboard(testLogger(), nil)
	d.SetData(testRecords())
	return d
}

type envelope[T any] struct {
	Data    T    `json:"data"`
	Success bool `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func get[T any](t *testing.T, handler http.HandlerFunc, target string) (int, envelope[T]) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body envelope[T]
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return w.Code, body
}

func TestNewAPIHandlers(t *testing.T) {
	dashboard := createTestDashboard()
	logger := testLogger()
	handlers := NewAPIHandlers(dashboard, 5, logger)

	if handlers.dashboard != dashboard || handlers.logger != logger || handlers.defaultTopN != 5 {
		t.Error("NewAPIHandlers() did not set its fields")
	}
}

func TestAPIHandlers_HandleOptions(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	code, body := get[struct {
		Options     models.FilterOptions   `json:"options"`
		Default     models.FilterSelection `json:"default"`
		DefaultTopN int                    `json:"default_top_n"`
	}](t, h.HandleOptions, "/api/options")

	if code != http.StatusOK || !body.Success {
		t.Fatalf("status = %d, success = %v", code, body.Success)
	}
	if diff := cmp.Diff([]int{2023, 2024}, body.Data.Options.Years); diff != "" {
		t.Errorf("Years mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"California", "Texas"}, body.Data.Options.States); diff != "" {
		t.Errorf("States mismatch (-want +got):\n%s", diff)
	}
	if len(body.Data.Default.States) != 0 || body.Data.DefaultTopN != 5 {
		t.Errorf("Default = %+v, top n %d", body.Data.Default, body.Data.DefaultTopN)
	}
}

func TestAPIHandlers_HandleViews(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	code, body := get[models.DashboardViews](t, h.HandleViews, "/api/views")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Data.FilteredRecords != 4 {
		t.Errorf("FilteredRecords = %d, want 4", body.Data.FilteredRecords)
	}
	if body.Data.Query.TopN != 5 {
		t.Errorf("TopN = %d, want default 5", body.Data.Query.TopN)
	}
	if got := body.Data.Regional.TopCities[0]; got.City != "Fresno" || !got.Sales.Equal(decimal.NewFromInt(105)) {
		t.Errorf("top city = %+v, want Fresno 105", got)
	}
}

func TestAPIHandlers_HandleProducts(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	code, body := get[models.ProductView](t, h.HandleProducts,
		"/api/products?years=2023&customer_types=Consumer,Corporate&categories=Technology&categories=Furniture")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	want := []models.GroupTotal{
		{Key: "Consumer", Sales: decimal.NewFromInt(100)},
		{Key: "Corporate", Sales: decimal.NewFromInt(50)},
	}
	if diff := cmp.Diff(want, body.Data.CustomerTypes); diff != "" {
		t.Errorf("CustomerTypes mismatch (-want +got):\n%s", diff)
	}
}

func TestAPIHandlers_HandleRegional(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	code, body := get[models.RegionalView](t, h.HandleRegional, "/api/regional?top_n=1&states=Texas")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Data.TopCities) != 1 || body.Data.TopCities[0].City != "Austin" {
		t.Errorf("TopCities = %+v, want only Austin", body.Data.TopCities)
	}
	if len(body.Data.Locations) != 2 {
		t.Errorf("Locations = %d, want the 2 Texas orders", len(body.Data.Locations))
	}
}

func TestAPIHandlers_HandleTrends(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	code, body := get[struct {
		OverallTrend []models.MonthYearTotal `json:"overall_trend"`
		Pivot        []models.PivotRow       `json:"pivot"`
	}](t, h.HandleTrends, "/api/trends?years=2024")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Data.OverallTrend) != 4 {
		t.Errorf("OverallTrend = %d labels, want 4 from the full dataset", len(body.Data.OverallTrend))
	}
	if len(body.Data.Pivot) != 2 || body.Data.Pivot[0].MonthName != "Jan" {
		t.Errorf("Pivot = %+v", body.Data.Pivot)
	}
}

func TestAPIHandlers_HandleRepeatCustomers(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	code, body := get[models.RepeatCustomerView](t, h.HandleRepeatCustomers, "/api/repeat-customers")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := []models.GroupTotal{
		{Key: models.NewCustomerLabel, Sales: decimal.NewFromInt(130)},
		{Key: models.RepeatCustomerLabel, Sales: decimal.NewFromInt(125)},
	}
	if diff := cmp.Diff(want, body.Data.Breakdown); diff != "" {
		t.Errorf("Breakdown mismatch (-want +got):\n%s", diff)
	}
}

func TestAPIHandlers_ErrorHandling(t *testing.T) {
	badFlag := testRecords()
	badFlag[0].RepeatCustomerFlag = 4
	corrupt := services.NewDashboard(testLogger(), nil)
	corrupt.SetData(badFlag)

	tests := []struct {
		name      string
		dashboard *services.Dashboard
		target    string
		status    int
		code      string
	}{
		{"not loaded", services.NewDashboard(testLogger(), nil), "/api/views", http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"bad year", createTestDashboard(), "/api/views?years=twenty", http.StatusBadRequest, "BAD_REQUEST"},
		{"top n too large", createTestDashboard(), "/api/views?top_n=11", http.StatusBadRequest, "BAD_REQUEST"},
		{"top n zero", createTestDashboard(), "/api/views?top_n=0", http.StatusBadRequest, "BAD_REQUEST"},
		{"bad repeat flag", corrupt, "/api/repeat-customers", http.StatusUnprocessableEntity, "DATA_FORMAT_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPIHandlers(tt.dashboard, 5, testLogger())
			handler := h.HandleViews
			if tt.target == "/api/repeat-customers" {
				handler = h.HandleRepeatCustomers
			}

			code, body := get[json.RawMessage](t, handler, tt.target)
			if code != tt.status {
				t.Errorf("status = %d, want %d", code, tt.status)
			}
			if body.Success || body.Error == nil || body.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", body.Error, tt.code)
			}
		})
	}
}

func TestAPIHandlers_EmptySelectionIsNotAnError(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	code, body := get[models.DashboardViews](t, h.HandleViews, "/api/views?categories=")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Data.FilteredRecords != 0 || len(body.Data.Products.Categories) != 0 {
		t.Errorf("views = %+v, want empty", body.Data)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	code, body := get[map[string]any](t, h.HandleHealth, "/health")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Data["status"] != "healthy" || body.Data["dataset_loaded"] != true {
		t.Errorf("health = %v", body.Data)
	}
	if _, err := time.Parse(time.RFC3339, body.Data["timestamp"].(string)); err != nil {
		t.Errorf("timestamp not RFC3339: %v", err)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	code, body := get[map[string]any](t, h.HandleStats, "/admin/stats")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Data["record_count"] != float64(4) || body.Data["source"] != "memory" {
		t.Errorf("stats = %v", body.Data)
	}
}

func TestAPIHandlers_CacheHeaders(t *testing.T) {
	h := NewAPIHandlers(createTestDashboard(), 5, testLogger())

	tests := []struct {
		handler http.HandlerFunc
		want    string
	}{
		{h.HandleOptions, "public, max-age=300"},
		{h.HandleViews, cacheNoStore},
		{h.HandleProducts, cacheNoStore},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		tt.handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if got := w.Header().Get("Cache-Control"); got != tt.want {
			t.Errorf("Cache-Control = %q, want %q", got, tt.want)
		}
	}
}
