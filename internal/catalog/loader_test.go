package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleCSV = `brand,model,launched_price_rs,ram_gb,storage_gb,battery_capacity_mah,back_camera_mp,screen_size_inches,Processor,launched_year
Samsung,Galaxy M14,13999,6,128,6000,50,6.6,Exynos 1330,2023
Xiaomi,Redmi 12,9999,4,64,5000,50,6.79,Helio G88,2023
Samsung,Galaxy M14,13999,6,128,6000,50,6.6,Exynos 1330,2023
Apple,iPhone 13 mini,69900,4,128,2438,12,5.4,A15 Bionic,2021
Nokia,Broken,n/a,4,64,5000,13,6.5,Unisoc,2022
OnePlus,Nord CE 3,26999,8,128,5000,50,6.7,Snapdragon 782G,
`

func TestParse_DropsNonNumericAndDuplicates(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", c.Len())
	}

	var models []string
	for _, r := range c.Rows() {
		models = append(models, r.Model)
	}
	want := []string{"Galaxy M14", "Redmi 12", "iPhone 13 mini", "Nord CE 3"}
	if !reflect.DeepEqual(models, want) {
		t.Errorf("models = %v, want %v", models, want)
	}
}

func TestParse_DropsNaNAndInf(t *testing.T) {
	csv := `brand,model,launched_price_rs,ram_gb,storage_gb,battery_capacity_mah,back_camera_mp,screen_size_inches
Samsung,Galaxy A14,NaN,4,64,5000,50,6.6
Samsung,Galaxy A24,15999,nan,128,5000,50,6.5
Realme,Narzo 60,17999,8,inf,5000,64,6.4
Realme,C55,-Inf,6,128,5000,64,6.72
Vivo,T2,18999,6,128,4700,64,6.38
`
	c, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Len() != 1 || c.Rows()[0].Model != "T2" {
		t.Fatalf("rows = %+v, want only Vivo T2", c.Rows())
	}
	if _, err := json.Marshal(c.Rows()); err != nil {
		t.Errorf("json.Marshal(rows): %v", err)
	}
}

func TestParse_Fields(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows := c.Rows()

	first := rows[0]
	if first.PriceRs != 13999 || first.RAMGB != 6 || first.StorageGB != 128 {
		t.Errorf("unexpected numeric fields: %+v", first)
	}
	if first.Processor != "Exynos 1330" {
		t.Errorf("Processor = %q, want Exynos 1330", first.Processor)
	}
	if first.LaunchedYear != 2023 {
		t.Errorf("LaunchedYear = %d, want 2023", first.LaunchedYear)
	}
	if rows[3].LaunchedYear != 0 {
		t.Errorf("missing year should be 0, got %d", rows[3].LaunchedYear)
	}
	if first.Name() != "Samsung Galaxy M14" {
		t.Errorf("Name() = %q", first.Name())
	}
}

func TestBrands_FirstSeenOrder(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"samsung", "xiaomi", "apple", "oneplus"}
	if got := c.Brands(); !reflect.DeepEqual(got, want) {
		t.Errorf("Brands() = %v, want %v", got, want)
	}
}

func TestParse_MissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("brand,model,ram_gb\nSamsung,A1,4\n"))
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("err = %v, want ErrInvalidCatalog", err)
	}
	if !strings.Contains(err.Error(), "launched_price_rs") {
		t.Errorf("error %q should name the missing column", err)
	}
}

func TestParse_NoUsableRows(t *testing.T) {
	csv := "brand,model,launched_price_rs,ram_gb,storage_gb,battery_capacity_mah,back_camera_mp,screen_size_inches\nX,Y,abc,4,64,5000,13,6.5\n"
	_, err := Parse(strings.NewReader(csv))
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("err = %v, want ErrInvalidCatalog", err)
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("err = %v, want ErrInvalidCatalog", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phones.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
}

func TestRows_ReturnsCopy(t *testing.T) {
	c := New([]Row{{Brand: "Samsung", Model: "A"}})
	rows := c.Rows()
	rows[0].Model = "mutated"
	if c.Rows()[0].Model != "A" {
		t.Error("Rows() exposed internal slice")
	}
}
