package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

var numericColumns = []string{
	"launched_price_rs",
	"ram_gb",
	"storage_gb",
	"battery_capacity_mah",
	"back_camera_mp",
	"screen_size_inches",
}

// Load reads a cleaned phone CSV from path. See Parse for the row rules.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	slog.Info("catalog loaded", "path", path, "rows", c.Len(), "brands", len(c.brands))
	return c, nil
}

// Parse reads CSV with a header row. Rows with a non-numeric value in any
// required numeric column are dropped, and duplicates on
// (brand, model, ram, storage, price) keep the first occurrence.
func Parse(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidCatalog)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidCatalog, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, req := range append([]string{"brand", "model"}, numericColumns...) {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidCatalog, req)
		}
	}

	var (
		rows    []Row
		seen    = make(map[string]bool)
		line    = 1
		dropped int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCatalog, line, err)
		}

		row, ok := parseRecord(rec, cols)
		if !ok {
			dropped++
			slog.Debug("dropping catalog row with non-numeric values", "line", line)
			continue
		}

		key := fmt.Sprintf("%s|%s|%v|%v|%v", row.Brand, row.Model, row.RAMGB, row.StorageGB, row.PriceRs)
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no usable rows", ErrInvalidCatalog)
	}
	if dropped > 0 {
		slog.Debug("catalog rows dropped", "count", dropped)
	}
	return New(rows), nil
}

func parseRecord(rec []string, cols map[string]int) (Row, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	nums := make([]float64, len(numericColumns))
	for i, name := range numericColumns {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Row{}, false
		}
		nums[i] = v
	}

	row := Row{
		Brand:        field("brand"),
		Model:        field("model"),
		PriceRs:      nums[0],
		RAMGB:        nums[1],
		StorageGB:    nums[2],
		BatteryMAh:   nums[3],
		BackCameraMP: nums[4],
		ScreenInches: nums[5],
		Processor:    field("processor"),
		ImageURL:     field("image_url"),
	}
	if y, err := strconv.ParseFloat(field("launched_year"), 64); err == nil && !math.IsNaN(y) && !math.IsInf(y, 0) {
		row.LaunchedYear = int(y)
	}
	return row, true
}
