package pricing

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/opterra/internal/model"
)

// LoadCatalog reads the units to seed from a .csv or .xlsx file. The first
// row is a header naming any of: manufacturer, model, fuel_type,
// capacity_gallons, tier. Blank rows are skipped and duplicate keys collapse
// to the first occurrence.
func LoadCatalog(path string) ([]model.PriceKey, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, eris.Errorf("pricing: unsupported catalog format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return parseCatalog(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: open catalog")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "pricing: read catalog csv")
		}
		rows = append(rows, rec)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: open catalog xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("pricing: catalog workbook has no sheets")
	}
	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func parseCatalog(rows [][]string) ([]model.PriceKey, error) {
	if len(rows) == 0 {
		return nil, eris.New("pricing: catalog is empty")
	}

	col := make(map[string]int)
	for i, h := range rows[0] {
		col[headerKey(h)] = i
	}
	_, hasModel := col["model"]
	_, hasFuel := col["fuel_type"]
	if !hasModel && !hasFuel {
		return nil, eris.New("pricing: catalog header needs a model or fuel_type column")
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	seen := make(map[string]bool)
	var keys []model.PriceKey
	for n, row := range rows[1:] {
		line := n + 2
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}

		key := model.PriceKey{
			Manufacturer: get(row, "manufacturer"),
			Model:        get(row, "model"),
			Tier:         model.Tier(strings.ToLower(get(row, "tier"))),
		}
		if fuel := get(row, "fuel_type"); fuel != "" {
			key.FuelType = model.ParseFuelType(fuel)
		}
		if c := get(row, "capacity_gallons"); c != "" {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil || v < 0 {
				return nil, eris.Errorf("pricing: catalog line %d: bad capacity %q", line, c)
			}
			key.CapacityGallons = v
		}
		switch key.Tier {
		case "", model.TierGood, model.TierBetter, model.TierBest:
		default:
			return nil, eris.Errorf("pricing: catalog line %d: unknown tier %q", line, key.Tier)
		}
		if !key.IsModel() && key.FuelType == "" {
			return nil, eris.Errorf("pricing: catalog line %d: need manufacturer and model, or fuel_type", line)
		}

		id := key.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, key)
	}
	return keys, nil
}
