package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

var ErrNotLoaded = errors.New("dataset not loaded")

// DatasetLoader materialises the joined warehouse table.
type DatasetLoader interface {
	Load(ctx context.Context) ([]models.RawSalesRow, error)
	Source() string
}

// Snapshot is an enriched dataset. It is never modified after construction
// and may be shared freely between requests.
type Snapshot struct {
	records  []models.SalesRecord
	options  models.FilterOptions
	source   string
	loadedAt time.Time
}

// NewSnapshot copies records and re-derives each month_year label from its
// order date.
func NewSnapshot(records []models.SalesRecord, source string) *Snapshot {
	owned := slices.Clone(records)
	if owned == nil {
		owned = make([]models.SalesRecord, 0)
	}
	for i := range owned {
		owned[i].MonthYear = MonthYear(owned[i].OrderDate)
	}
	return &Snapshot{
		records:  owned,
		options:  Options(owned),
		source:   source,
		loadedAt: time.Now(),
	}
}

// Records returns the dataset. Callers must treat it as read-only.
func (s *Snapshot) Records() []models.SalesRecord {
	return slices.Clip(s.records)
}

func (s *Snapshot) Len() int {
	return len(s.records)
}

func (s *Snapshot) Options() models.FilterOptions {
	return s.options
}

func (s *Snapshot) Source() string {
	return s.source
}

func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Trends uses the primary selection for the per-year chart and the full
// dataset for the overall month_year trend.
func (s *Snapshot) Trends(q models.ViewQuery) models.TrendsView {
	primary := Filter(s.records, q.Selection.Primary())
	return models.TrendsView{
		MonthlyTrend: MonthlyTrendByYear(primary),
		OverallTrend: OverallMonthlyTrend(s.records),
	}
}

func (s *Snapshot) Regional(q models.ViewQuery) (models.RegionalView, error) {
	primary := Filter(s.records, q.Selection.Primary())
	cities, err := TopNCities(primary, q.Selection.States, q.TopN)
	if err != nil {
		return models.RegionalView{}, err
	}
	return models.RegionalView{
		TopCities:    cities,
		Locations:    LocationPoints(primary, q.Selection.States),
		RegionStates: RegionStateBreakdown(s.records),
	}, nil
}

// Products applies the months overlay on top of the primary selection.
func (s *Snapshot) Products(q models.ViewQuery) models.ProductView {
	timeFiltered := Filter(s.records, q.Selection.WithMonths())
	return models.ProductView{
		Categories:    CategoryBreakdown(timeFiltered),
		CustomerTypes: SegmentBreakdown(timeFiltered),
	}
}

func (s *Snapshot) RepeatCustomers(q models.ViewQuery) (models.RepeatCustomerView, error) {
	breakdown, err := RepeatCustomerBreakdown(Filter(s.records, q.Selection.Primary()))
	if err != nil {
		return models.RepeatCustomerView{}, err
	}
	return models.RepeatCustomerView{Breakdown: breakdown}, nil
}

// Views runs every view computation for one selection.
func (s *Snapshot) Views(q models.ViewQuery) (*models.DashboardViews, error) {
	regional, err := s.Regional(q)
	if err != nil {
		return nil, fmt.Errorf("regional view: %w", err)
	}
	repeat, err := s.RepeatCustomers(q)
	if err != nil {
		return nil, fmt.Errorf("repeat customer view: %w", err)
	}

	return &models.DashboardViews{
		Query:           q,
		FilteredRecords: len(Filter(s.records, q.Selection.Primary())),
		Trends:          s.Trends(q),
		Regional:        regional,
		Products:        s.Products(q),
		RepeatCustomers: repeat,
	}, nil
}

// Dashboard holds the current snapshot for the session.
type Dashboard struct {
	snapshot atomic.Pointer[Snapshot]
	logger   *slog.Logger
	metrics  *observability.Metrics
}

func NewDashboard(logger *slog.Logger, metrics *observability.Metrics) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		logger:  logger,
		metrics: metrics,
	}
}

// Load replaces the snapshot with a freshly loaded and enriched dataset.
// On error the previous snapshot, if any, is kept.
func (d *Dashboard) Load(ctx context.Context, loader DatasetLoader) error {
	ctx, span := observability.StartSpan(ctx, "dashboard.load")
	logger := observability.LoggerFrom(ctx, d.logger)
	defer span.Finish(logger)
	span.SetTag("source", loader.Source())

	start := time.Now()
	logger.Info("loading dataset", "source", loader.Source())

	rows, err := loader.Load(ctx)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("load dataset: %w", err)
	}

	records, err := Enrich(rows)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("enrich dataset: %w", err)
	}

	snap := NewSnapshot(records, loader.Source())
	d.snapshot.Store(snap)

	duration := time.Since(start)
	d.metrics.ObserveLoad(snap.Len(), duration)
	logger.Info("dataset loaded",
		"source", snap.Source(),
		"records", snap.Len(),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(snap.Len())/duration.Seconds()),
	)
	return nil
}

// SetData installs an in-memory dataset.
func (d *Dashboard) SetData(records []models.SalesRecord) {
	d.snapshot.Store(NewSnapshot(records, "memory"))
}

func (d *Dashboard) Snapshot() (*Snapshot, error) {
	snap := d.snapshot.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

func (d *Dashboard) Options() (models.FilterOptions, error) {
	snap, err := d.Snapshot()
	if err != nil {
		return models.FilterOptions{}, err
	}
	return snap.Options(), nil
}

func (d *Dashboard) Views(q models.ViewQuery) (*models.DashboardViews, error) {
	return recompute(d, func(s *Snapshot) (*models.DashboardViews, error) { return s.Views(q) })
}

func (d *Dashboard) Trends(q models.ViewQuery) (models.TrendsView, error) {
	return recompute(d, func(s *Snapshot) (models.TrendsView, error) { return s.Trends(q), nil })
}

func (d *Dashboard) Regional(q models.ViewQuery) (models.RegionalView, error) {
	return recompute(d, func(s *Snapshot) (models.RegionalView, error) { return s.Regional(q) })
}

func (d *Dashboard) Products(q models.ViewQuery) (models.ProductView, error) {
	return recompute(d, func(s *Snapshot) (models.ProductView, error) { return s.Products(q), nil })
}

func (d *Dashboard) RepeatCustomers(q models.ViewQuery) (models.RepeatCustomerView, error) {
	return recompute(d, func(s *Snapshot) (models.RepeatCustomerView, error) { return s.RepeatCustomers(q) })
}

func recompute[T any](d *Dashboard, fn func(*Snapshot) (T, error)) (T, error) {
	var zero T
	snap, err := d.Snapshot()
	if err != nil {
		return zero, err
	}

	start := time.Now()
	result, err := fn(snap)
	duration := time.Since(start)
	d.metrics.ObserveRecompute(duration, err)
	if err != nil {
		return zero, err
	}

	d.logger.Debug("views recomputed", "records", snap.Len(), "duration", duration)
	return result, nil
}

// Stats reports the shape of the loaded dataset.
func (d *Dashboard) Stats() map[string]any {
	snap := d.snapshot.Load()
	if snap == nil {
		return map[string]any{"loaded": false}
	}

	opts := snap.Options()
	return map[string]any{
		"loaded":         true,
		"source":         snap.Source(),
		"record_count":   snap.Len(),
		"last_loaded":    snap.LoadedAt(),
		"years":          len(opts.Years),
		"customer_types": len(opts.CustomerTypes),
		"categories":     len(opts.Categories),
		"states":         len(opts.States),
		"months":         len(opts.Months),
	}
}
