package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ── CSV card list ───────────────────────────────────────────
// The first row must be a header naming at least "name". Recognized
// columns: name, set, number, rarity, image (with common aliases).

type csvFormat struct{}

func init() { Register(&csvFormat{}) }

func (f *csvFormat) Name() string { return "csv" }

func (f *csvFormat) Extensions() []string { return []string{"csv"} }

func (f *csvFormat) Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv file")
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf(`csv header must include a "name" column`)
	}

	pick := func(row []string, keys ...string) string {
		for _, k := range keys {
			if i, ok := cols[k]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	rows := make([]Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		name := pick(rec, "name")
		if name == "" {
			continue // blank line
		}
		tier, err := NormalizeRarity(pick(rec, "rarity"))
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", n+2, name, err)
		}
		rows = append(rows, Row{
			Name:     name,
			SetCode:  pick(rec, "set", "setcode", "set_code"),
			Number:   pick(rec, "number", "no", "collector_number"),
			Rarity:   tier,
			ImageURL: pick(rec, "image", "imageurl", "image_url"),
		})
	}
	return rows, nil
}
