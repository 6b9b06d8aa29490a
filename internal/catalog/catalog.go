package catalog

import (
	"errors"
	"strings"
)

// ErrInvalidCatalog is returned when the catalog source cannot produce a usable dataset.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Row is a single phone specification. Numeric fields are always populated;
// rows whose numeric columns fail coercion never make it into a Catalog.
type Row struct {
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	PriceRs      float64 `json:"launched_price_rs"`
	RAMGB        float64 `json:"ram_gb"`
	StorageGB    float64 `json:"storage_gb"`
	BatteryMAh   float64 `json:"battery_capacity_mah"`
	BackCameraMP float64 `json:"back_camera_mp"`
	ScreenInches float64 `json:"screen_size_inches"`
	Processor    string  `json:"processor,omitempty"`
	LaunchedYear int     `json:"launched_year,omitempty"`
	ImageURL     string  `json:"image_url,omitempty"`
}

// Name is the display name used for cards and image lookups.
func (r Row) Name() string {
	return strings.TrimSpace(r.Brand + " " + r.Model)
}

// Catalog is an immutable, ordered set of rows. It is safe for concurrent reads.
type Catalog struct {
	rows   []Row
	brands []string
}

// New builds a Catalog from rows, keeping their order. The slice is copied.
func New(rows []Row) *Catalog {
	cp := make([]Row, len(rows))
	copy(cp, rows)

	seen := make(map[string]bool)
	var brands []string
	for _, r := range cp {
		b := strings.ToLower(strings.TrimSpace(r.Brand))
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		brands = append(brands, b)
	}
	return &Catalog{rows: cp, brands: brands}
}

// Rows returns a copy of all rows in catalog order.
func (c *Catalog) Rows() []Row {
	cp := make([]Row, len(c.rows))
	copy(cp, c.rows)
	return cp
}

// Len returns the number of rows.
func (c *Catalog) Len() int {
	return len(c.rows)
}

// Brands returns the distinct lower-cased brand names in first-seen order.
func (c *Catalog) Brands() []string {
	cp := make([]string, len(c.brands))
	copy(cp, c.brands)
	return cp
}
