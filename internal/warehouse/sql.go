package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/models"
)

// SalesQuery joins the sales fact table to its four dimensions. The date
// dimension is keyed by the order date as YYYYMMDD.
const SalesQuery = `
SELECT
    l.CITY,
    l.STATE,
    l.REGION,
    f.ORDER_DATE,
    d.YEAR,
    d.MONTH,
    d.DAY_NAME,
    d.MONTH_NAME,
    f.ORDER_MONTH,
    p.CATEGORY,
    p.SUB_CATEGORY,
    c.SEGMENT,
    c.CUSTOMER_TYPE,
    c.REPEAT_CUSTOMER_FLAG,
    l.LATITUDE,
    l.LONGITUDE,
    f.SALES
FROM FACT_SALES f
JOIN DIM_LOCATION l ON f.LOCATION_ID = l.LOCATION_ID
JOIN DIM_CUSTOMER c ON f.CUSTOMER_ID = c.CUSTOMER_ID
JOIN DIM_PRODUCT p ON f.PRODUCT_ID = p.PRODUCT_ID
JOIN DIM_DATE d ON CAST(DATE_FORMAT(f.ORDER_DATE, '%Y%m%d') AS UNSIGNED) = d.DATE_ID`

// SQLLoader runs the join query against a MySQL-compatible warehouse.
type SQLLoader struct {
	db     *sql.DB
	source string
	query  string
	logger *slog.Logger
}

// DSN builds the driver connection string for cfg. Dates are returned as
// time.Time.
func DSN(cfg config.WarehouseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// OpenSQL connects to the warehouse and verifies the connection.
func OpenSQL(ctx context.Context, cfg config.WarehouseConfig, logger *slog.Logger) (*SQLLoader, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping warehouse: %w", err)
	}

	logger.Info("warehouse connected",
		"host", cfg.Host,
		"database", cfg.Database,
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
	)

	return NewSQLLoader(db, fmt.Sprintf("mysql:%s/%s", cfg.Host, cfg.Database), cfg.Query, logger), nil
}

// NewSQLLoader wraps an open database. An empty query selects SalesQuery.
func NewSQLLoader(db *sql.DB, source, query string, logger *slog.Logger) *SQLLoader {
	if strings.TrimSpace(query) == "" {
		query = SalesQuery
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLLoader{db: db, source: source, query: query, logger: logger}
}

func (l *SQLLoader) Source() string {
	return l.source
}

func (l *SQLLoader) Load(ctx context.Context) ([]models.RawSalesRow, error) {
	start := time.Now()

	rows, err := l.db.QueryContext(ctx, l.query)
	if err != nil {
		return nil, fmt.Errorf("query warehouse: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	columns, err := resolveColumns(l.source, names)
	if err != nil {
		return nil, err
	}

	texts := make([]sql.NullString, len(names))
	var orderDate any
	dest := make([]any, len(names))
	for i := range names {
		dest[i] = &texts[i]
	}
	dest[columns[ColOrderDate]] = &orderDate

	value := func(col string) string {
		return strings.TrimSpace(texts[columns[col]].String)
	}

	result := make([]models.RawSalesRow, 0)
	for rows.Next() {
		for i := range texts {
			texts[i] = sql.NullString{}
		}
		orderDate = nil

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(result)+1, err)
		}

		row, err := decodeRow(len(result)+1, orderDate, value)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("no records found")
	}

	l.logger.Info("warehouse query complete", "records", len(result), "duration", time.Since(start))
	return result, nil
}

func (l *SQLLoader) Close() error {
	return l.db.Close()
}
