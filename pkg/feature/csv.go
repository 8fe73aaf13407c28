package feature

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cartopack/cartopack/pkg/errors"
)

// Fields names the columns to read from a table.
// Value and Group are required. Case and Category are optional and enable
// the hierarchical tools. Empty ID, X, or Y fall back to auto-detection
// against common column names.
type Fields struct {
	ID       string `json:"id,omitempty" bson:"id,omitempty"`
	Value    string `json:"value" bson:"value"`
	Group    string `json:"group" bson:"group"`
	Case     string `json:"case,omitempty" bson:"case,omitempty"`
	Category string `json:"category,omitempty" bson:"category,omitempty"`
	X        string `json:"x,omitempty" bson:"x,omitempty"`
	Y        string `json:"y,omitempty" bson:"y,omitempty"`
}

// ReadReport summarizes what a reader did with a table.
// Rows counts data rows seen; Records counts rows that became records.
// NullValues counts empty value cells (kept as null records), BadValues
// counts value cells that failed to parse (also kept as null, so the
// aggregator's drop accounting sees them), and SkippedRows counts rows
// dropped entirely for short width or malformed coordinates.
type ReadReport struct {
	Rows        int `json:"rows"`
	Records     int `json:"records"`
	NullValues  int `json:"null_values"`
	BadValues   int `json:"bad_values"`
	SkippedRows int `json:"skipped_rows"`
}

// Column detection candidates, matched case-insensitively against headers.
var (
	idColumns = []string{"id", "fid", "objectid", "name"}
	xColumns  = []string{"x", "lon", "lng", "long", "longitude", "easting"}
	yColumns  = []string{"y", "lat", "latitude", "northing"}
)

// ReadCSV reads records from a CSV file.
func ReadCSV(path string, fields Fields) ([]Record, ReadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadReport{}, errors.Wrap(errors.ErrCodeReadInput, err, "open csv")
	}
	defer f.Close()
	return ParseCSV(f, fields)
}

// ParseCSV reads records from CSV data.
// The first row is the header. Rows shorter than the rightmost used column
// or with unparseable coordinates are skipped and counted; empty or
// unparseable value cells produce null-valued records so downstream drop
// accounting stays complete.
func ParseCSV(r io.Reader, fields Fields) ([]Record, ReadReport, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// Ragged rows are skipped by the width check below, not treated as a
	// parse failure for the whole table.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ReadReport{}, errors.New(errors.ErrCodeReadInput, "csv has no header row")
	}
	if err != nil {
		return nil, ReadReport{}, errors.Wrap(errors.ErrCodeReadInput, err, "read csv header")
	}

	cols, err := resolveColumns(header, fields)
	if err != nil {
		return nil, ReadReport{}, err
	}

	var (
		records []Record
		report  ReadReport
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, report, errors.Wrap(errors.ErrCodeReadInput, err, "read csv row")
		}
		report.Rows++

		if cols.max() >= len(row) {
			report.SkippedRows++
			continue
		}

		x, errX := strconv.ParseFloat(strings.TrimSpace(row[cols.x]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(row[cols.y]), 64)
		if errX != nil || errY != nil {
			report.SkippedRows++
			continue
		}

		rec := Record{
			Group: strings.TrimSpace(row[cols.group]),
			X:     x,
			Y:     y,
			Raw:   rowMap(header, row),
		}

		if cols.id >= 0 {
			rec.ID = strings.TrimSpace(row[cols.id])
		}
		if rec.ID == "" {
			rec.ID = strconv.Itoa(report.Rows)
		}
		if cols.cs >= 0 {
			rec.Case = strings.TrimSpace(row[cols.cs])
		}
		if cols.category >= 0 {
			rec.Category = strings.TrimSpace(row[cols.category])
		}

		raw := strings.TrimSpace(row[cols.value])
		switch {
		case raw == "":
			report.NullValues++
		default:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				report.BadValues++
			} else {
				rec.Value = &v
			}
		}

		records = append(records, rec)
		report.Records++
	}

	return records, report, nil
}

// rowMap keys a row's cells by header name, so sort fields and attributes
// outside the typed columns stay reachable downstream.
func rowMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i >= len(row) {
			break
		}
		m[strings.TrimSpace(h)] = strings.TrimSpace(row[i])
	}
	return m
}

// columns holds resolved column indexes; -1 means the column is unused.
type columns struct {
	id       int
	value    int
	group    int
	cs       int
	category int
	x        int
	y        int
}

func (c columns) max() int {
	m := c.value
	for _, i := range []int{c.id, c.group, c.cs, c.category, c.x, c.y} {
		if i > m {
			m = i
		}
	}
	return m
}

// resolveColumns maps configured field names (or detection candidates) to
// header indexes. A missing required column is a configuration error.
func resolveColumns(header []string, fields Fields) (columns, error) {
	cols := columns{id: -1, value: -1, group: -1, cs: -1, category: -1, x: -1, y: -1}

	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	detect := func(candidates []string) int {
		for _, name := range candidates {
			if i := find(name); i >= 0 {
				return i
			}
		}
		return -1
	}

	if fields.Value == "" {
		return cols, errors.New(errors.ErrCodeMissingField, "value field is required")
	}
	if fields.Group == "" {
		return cols, errors.New(errors.ErrCodeMissingField, "group field is required")
	}
	if cols.value = find(fields.Value); cols.value < 0 {
		return cols, errors.New(errors.ErrCodeMissingField, "value column %q not in header", fields.Value)
	}
	if cols.group = find(fields.Group); cols.group < 0 {
		return cols, errors.New(errors.ErrCodeMissingField, "group column %q not in header", fields.Group)
	}

	if fields.Case != "" {
		if cols.cs = find(fields.Case); cols.cs < 0 {
			return cols, errors.New(errors.ErrCodeMissingField, "case column %q not in header", fields.Case)
		}
	}
	if fields.Category != "" {
		if cols.category = find(fields.Category); cols.category < 0 {
			return cols, errors.New(errors.ErrCodeMissingField, "category column %q not in header", fields.Category)
		}
	}

	if fields.ID != "" {
		if cols.id = find(fields.ID); cols.id < 0 {
			return cols, errors.New(errors.ErrCodeMissingField, "id column %q not in header", fields.ID)
		}
	} else {
		cols.id = detect(idColumns)
	}

	if fields.X != "" {
		if cols.x = find(fields.X); cols.x < 0 {
			return cols, errors.New(errors.ErrCodeMissingField, "x column %q not in header", fields.X)
		}
	} else {
		cols.x = detect(xColumns)
	}
	if fields.Y != "" {
		if cols.y = find(fields.Y); cols.y < 0 {
			return cols, errors.New(errors.ErrCodeMissingField, "y column %q not in header", fields.Y)
		}
	} else {
		cols.y = detect(yColumns)
	}
	if cols.x < 0 || cols.y < 0 {
		return cols, errors.New(errors.ErrCodeMissingField, "coordinate columns not found (looked for %s / %s)",
			strings.Join(xColumns, "|"), strings.Join(yColumns, "|"))
	}

	return cols, nil
}
