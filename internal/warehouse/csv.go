package warehouse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// CSVLoader reads an extract of the joined warehouse table.
type CSVLoader struct {
	path   string
	cache  *tableCache
	logger *slog.Logger
}

// NewCSVLoader returns a loader for path. An empty cacheDir disables the
// parsed-table cache.
func NewCSVLoader(path, cacheDir string, logger *slog.Logger) *CSVLoader {
	if logger == nil {
		logger = slog.Default()
	}
	var cache *tableCache
	if cacheDir != "" {
		cache = &tableCache{dir: cacheDir}
	}
	return &CSVLoader{path: path, cache: cache, logger: logger}
}

func (l *CSVLoader) Source() string {
	return "csv:" + l.path
}

func (l *CSVLoader) Load(ctx context.Context) ([]models.RawSalesRow, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if rows, ok := l.cache.load(l.path, info.ModTime()); ok {
		l.logger.Info("loaded from cache", "path", l.path, "records", len(rows))
		return rows, nil
	}

	start := time.Now()
	l.logger.Info("processing CSV file", "path", l.path)

	rows, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	if err := l.cache.save(l.path, info.ModTime(), rows); err != nil {
		l.logger.Warn("failed to save cache", "error", err)
	}

	l.logger.Info("csv processing complete", "records", len(rows), "duration", time.Since(start))
	return rows, nil
}

type batchResult struct {
	rows []models.RawSalesRow
	err  error
}

func (l *CSVLoader) read(ctx context.Context) ([]models.RawSalesRow, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns, err := resolveColumns(l.Source(), header)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	var results []*batchResult
	batch := make([][]string, 0, batchSize)
	firstRow := 1

	flush := func() {
		lines, offset := batch, firstRow
		res := &batchResult{}
		results = append(results, res)
		g.Go(func() error {
			res.rows, res.err = decodeBatch(gctx, columns, lines, offset)
			return res.err
		})
		firstRow += len(batch)
		batch = make([][]string, 0, batchSize)
	}

	for {
		if err := gctx.Err(); err != nil {
			break
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = g.Wait()
			return nil, fmt.Errorf("read row %d: %w", firstRow+len(batch), err)
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			flush()
		}
	}
	if len(batch) > 0 {
		flush()
	}

	if err := g.Wait(); err != nil {
		// Report the earliest failing row rather than whichever batch lost
		// the race.
		for _, res := range results {
			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				return nil, res.err
			}
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, res := range results {
		total += len(res.rows)
	}
	if total == 0 {
		return nil, fmt.Errorf("no records found")
	}

	rows := make([]models.RawSalesRow, 0, total)
	for _, res := range results {
		rows = append(rows, res.rows...)
	}
	return rows, nil
}

func decodeBatch(ctx context.Context, columns columnIndex, lines [][]string, firstRow int) ([]models.RawSalesRow, error) {
	rows := make([]models.RawSalesRow, 0, len(lines))
	for i, record := range lines {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		value := func(col string) string {
			pos := columns[col]
			if pos >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[pos])
		}

		row, err := decodeRow(firstRow+i, value(ColOrderDate), value)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
