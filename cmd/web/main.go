package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
	"sales-dashboard/internal/warehouse"
)

const (
	renderTimeout = 10 * time.Second
	cacheNoStore  = "no-store"
	pageTitle     = "Sales Dashboard"
)

func handleDashboard(dashboard *services.Dashboard, defaultTopN int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		data := templates.PageData{Title: pageTitle, TopN: defaultTopN}
		if opts, err := dashboard.Options(); err == nil {
			data.Options = opts
			data.Selection = services.DefaultSelection(opts)
			data.Loaded = true
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheNoStore)
		if err := templates.Dashboard(data).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:     "salesdash",
		Short:   "Sales analytics dashboard over a star-schema warehouse",
		Version: handlers.Version,
		Long: `salesdash loads the joined sales table once from a CSV extract or a
MySQL warehouse and serves an interactive dashboard of monthly trends,
top cities, product categories, customer types and repeat customers.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			decimal.MarshalJSONWithoutQuotes = true
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (yaml, json or toml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Load the dataset and serve the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	})
	root.AddCommand(newReportCmd(opts))

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDashboard opens the configured warehouse and loads the dataset. The
// returned loader must be closed by the caller.
func loadDashboard(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*services.Dashboard, warehouse.Loader, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Warehouse.LoadTimeout)
	defer cancel()

	loader, err := warehouse.New(ctx, cfg.Warehouse, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open warehouse: %w", err)
	}

	dashboard := services.NewDashboard(logger, metrics)
	if err := dashboard.Load(ctx, loader); err != nil {
		loader.Close()
		return nil, nil, err
	}
	return dashboard, loader, nil
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", handlers.Version,
		"source", cfg.Warehouse.Source,
		"addr", cfg.Address(),
	)

	metrics := observability.NewMetrics()

	dashboard, loader, err := loadDashboard(cmd.Context(), cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		return err
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard(dashboard, cfg.Dashboard.DefaultTopN),
	}

	srv := server.NewServer(dashboard, cfg.Dashboard.DefaultTopN, metrics, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Metrics(metrics),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("closing warehouse connection", "source", loader.Source())
		return loader.Close()
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		return err
	}

	logger.Info("application stopped gracefully")
	return nil
}

type reportOptions struct {
	years         []int
	customerTypes []string
	categories    []string
	states        []string
	months        []string
	topN          int
	view          string
	pretty        bool
}

var reportViews = []string{"all", "trends", "regional", "products", "repeat-customers"}

func newReportCmd(opts *options) *cobra.Command {
	ro := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print dashboard views for a selection as JSON",
		Example: `  # Everything for 2024
  $ salesdash report --years 2024

  # Top 3 Texas cities for two categories
  $ salesdash report --view regional --states Texas --top-n 3 --categories Technology,Furniture`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, ro)
		},
	}

	f := cmd.Flags()
	f.IntSliceVar(&ro.years, services.ParamYears, nil, "years to include (default all)")
	f.StringSliceVar(&ro.customerTypes, "customer-types", nil, "customer types to include (default all)")
	f.StringSliceVar(&ro.categories, services.ParamCategories, nil, "product categories to include (default all)")
	f.StringSliceVar(&ro.states, services.ParamStates, nil, "restrict regional views to these states")
	f.StringSliceVar(&ro.months, services.ParamMonths, nil, "restrict product views to these month names")
	f.IntVar(&ro.topN, "top-n", 0, fmt.Sprintf("number of top cities, %d-%d (default from config)", models.MinTopN, models.MaxTopN))
	f.StringVar(&ro.view, "view", "all", fmt.Sprintf("view to print: %v", reportViews))
	f.BoolVar(&ro.pretty, "pretty", false, "indent JSON output")

	return cmd
}

// values converts the flags that were set into request parameters, so the
// report parses selections exactly like the HTTP API does.
func (ro *reportOptions) values(cmd *cobra.Command) url.Values {
	v := url.Values{}
	changed := cmd.Flags().Changed

	if changed(services.ParamYears) {
		v[services.ParamYears] = []string{}
		for _, y := range ro.years {
			v.Add(services.ParamYears, strconv.Itoa(y))
		}
	}
	if changed("customer-types") {
		v[services.ParamCustomerTypes] = append([]string{}, ro.customerTypes...)
	}
	if changed(services.ParamCategories) {
		v[services.ParamCategories] = append([]string{}, ro.categories...)
	}
	if changed(services.ParamStates) {
		v[services.ParamStates] = append([]string{}, ro.states...)
	}
	if changed(services.ParamMonths) {
		v[services.ParamMonths] = append([]string{}, ro.months...)
	}
	if changed("top-n") {
		v.Set(services.ParamTopN, strconv.Itoa(ro.topN))
	}
	return v
}

func runReport(cmd *cobra.Command, opts *options, ro *reportOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	// stdout carries the report; logs go to stderr.
	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)

	dashboard, loader, err := loadDashboard(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer loader.Close()

	snap, err := dashboard.Snapshot()
	if err != nil {
		return err
	}
	q, err := services.ParseViewQuery(ro.values(cmd), snap.Options(), cfg.Dashboard.DefaultTopN)
	if err != nil {
		return err
	}

	var out any
	switch ro.view {
	case "all":
		out, err = dashboard.Views(q)
	case "trends":
		var trends models.TrendsView
		trends, err = dashboard.Trends(q)
		out = map[string]any{
			"monthly_trend": trends.MonthlyTrend,
			"pivot":         trends.MonthlyTrend.Pivot(),
			"overall_trend": trends.OverallTrend,
		}
	case "regional":
		out, err = dashboard.Regional(q)
	case "products":
		out, err = dashboard.Products(q)
	case "repeat-customers":
		out, err = dashboard.RepeatCustomers(q)
	default:
		return fmt.Errorf("unknown view %q, must be one of %v", ro.view, reportViews)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if ro.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
