package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

const salesCSV = `CITY,STATE,REGION,ORDER_DATE,YEAR,MONTH,DAY_NAME,MONTH_NAME,ORDER_MONTH,CATEGORY,SUB_CATEGORY,SEGMENT,CUSTOMER_TYPE,REPEAT_CUSTOMER_FLAG,LATITUDE,LONGITUDE,SALES
Austin,Texas,Central,2023-12-20,2023,12,Wednesday,Dec,2023-12,Technology,Phones,Consumer,Consumer,0,30.27,-97.74,120.50
Houston,Texas,Central,2024-01-03,2024,1,Wednesday,Jan,2024-01,Furniture,Chairs,Corporate,Corporate,1,29.76,-95.37,80
Fresno,California,West,2024-01-15,2024,1,Monday,Jan,2024-01,Technology,Phones,Consumer,Consumer,1,36.74,-119.79,200
`

func newTestDashboard() *services.Dashboard {
	d := services.NewDashboard(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	d.SetData([]models.SalesRecord{{
		City:         "Austin",
		State:        "Texas",
		OrderDate:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Year:         2024,
		MonthName:    "Jan",
		Category:     "Technology",
		CustomerType: "Consumer",
		Sales:        decimal.NewFromInt(10),
	}})
	return d
}

func TestHandleDashboard(t *testing.T) {
	w := httptest.NewRecorder()
	handleDashboard(newTestDashboard(), 5)(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("content-type = %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{pageTitle, `value="2024" data-bind="years"`, `value="Technology" data-bind="categories"`} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard should contain %q", want)
		}
	}
}

func TestHandleDashboard_NotLoaded(t *testing.T) {
	d := services.NewDashboard(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	w := httptest.NewRecorder()
	handleDashboard(d, 5)(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Dataset is not loaded yet") {
		t.Errorf("status = %d, body should warn about the missing dataset", w.Code)
	}
}

func setupCSV(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(path, []byte(salesCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CSV_FILE", path)
	t.Setenv("WAREHOUSE_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestReport_Products(t *testing.T) {
	setupCSV(t)

	out, err := runCLI(t, "report", "--view", "products", "--years", "2024")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	var view struct {
		Categories []struct {
			Key   string          `json:"key"`
			Sales json.RawMessage `json:"sales"`
		} `json:"categories"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(view.Categories) != 2 || view.Categories[0].Key != "Furniture" {
		t.Fatalf("categories = %+v", view.Categories)
	}
	if string(view.Categories[1].Sales) != "200" {
		t.Errorf("Technology sales = %s, want unquoted 200", view.Categories[1].Sales)
	}
}

func TestReport_RegionalWithOverlay(t *testing.T) {
	setupCSV(t)

	out, err := runCLI(t, "report", "--view", "regional", "--states", "Texas", "--top-n", "1")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.Contains(out, `"city":"Austin"`) || strings.Contains(out, `"city":"Fresno"`) {
		t.Errorf("unexpected regional output: %s", out)
	}
}

func TestReport_All(t *testing.T) {
	setupCSV(t)

	out, err := runCLI(t, "report", "--pretty")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	var views models.DashboardViews
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if views.FilteredRecords != 3 {
		t.Errorf("FilteredRecords = %d, want 3", views.FilteredRecords)
	}
	if views.Trends.OverallTrend[0].MonthYear != "Dec-2023" {
		t.Errorf("first month = %s, want Dec-2023", views.Trends.OverallTrend[0].MonthYear)
	}
}

func TestReport_Errors(t *testing.T) {
	setupCSV(t)

	tests := [][]string{
		{"report", "--view", "pies"},
		{"report", "--top-n", "11"},
		{"report", "extra-arg"},
	}
	for _, args := range tests {
		if _, err := runCLI(t, args...); err == nil {
			t.Errorf("%v should fail", args)
		}
	}
}

func TestReport_MissingFile(t *testing.T) {
	t.Setenv("CSV_FILE", filepath.Join(t.TempDir(), "missing.csv"))
	t.Setenv("LOG_LEVEL", "error")

	if _, err := runCLI(t, "report"); err == nil {
		t.Error("report without a dataset should fail")
	}
}

func TestReportOptions_Values(t *testing.T) {
	cmd := newReportCmd(&options{})
	if err := cmd.ParseFlags([]string{"--years", "2023,2024", "--categories", "", "--top-n", "3"}); err != nil {
		t.Fatal(err)
	}

	ro := &reportOptions{}
	ro.years, _ = cmd.Flags().GetIntSlice(services.ParamYears)
	ro.categories, _ = cmd.Flags().GetStringSlice(services.ParamCategories)
	ro.topN, _ = cmd.Flags().GetInt("top-n")

	v := ro.values(cmd)
	if got := v[services.ParamYears]; len(got) != 2 || got[0] != "2023" {
		t.Errorf("years = %v", got)
	}
	if !v.Has(services.ParamCategories) || len(v[services.ParamCategories]) != 0 {
		t.Errorf("categories = %v, want present and empty", v[services.ParamCategories])
	}
	if v.Has(services.ParamCustomerTypes) {
		t.Error("unset customer types should be absent")
	}
	if v.Get(services.ParamTopN) != "3" {
		t.Errorf("top_n = %q", v.Get(services.ParamTopN))
	}
}
