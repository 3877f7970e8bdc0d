package warehouse

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

const cacheVersion = "v2"

// tableCache persists parsed CSV rows keyed by source path. An entry is only
// valid for the source modification time it was written for. A nil cache
// is a no-op.
type tableCache struct {
	dir string
}

type cachedTable struct {
	Version       string
	SourceModTime time.Time
	Rows          []models.RawSalesRow
	OrderDates    []string
}

func (c *tableCache) filename(source string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(source)
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (c *tableCache) load(source string, modTime time.Time) ([]models.RawSalesRow, bool) {
	if c == nil {
		return nil, false
	}

	file, err := os.Open(c.filename(source))
	if err != nil {
		return nil, false
	}
	defer file.Close()

	var cached cachedTable
	if err := gob.NewDecoder(file).Decode(&cached); err != nil {
		return nil, false
	}
	if cached.Version != cacheVersion || !cached.SourceModTime.Equal(modTime) || len(cached.OrderDates) != len(cached.Rows) {
		return nil, false
	}

	for i := range cached.Rows {
		cached.Rows[i].OrderDate = cached.OrderDates[i]
	}
	return cached.Rows, true
}

// save stores rows whose OrderDate values are strings, as produced by the
// CSV loader.
func (c *tableCache) save(source string, modTime time.Time, rows []models.RawSalesRow) error {
	if c == nil {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	cached := cachedTable{
		Version:       cacheVersion,
		SourceModTime: modTime,
		Rows:          make([]models.RawSalesRow, len(rows)),
		OrderDates:    make([]string, len(rows)),
	}
	for i, row := range rows {
		cached.OrderDates[i] = fmt.Sprint(row.OrderDate)
		row.OrderDate = nil
		cached.Rows[i] = row
	}

	file, err := os.Create(c.filename(source))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(cached)
}
