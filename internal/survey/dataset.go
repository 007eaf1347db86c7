package survey

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// CSV column names the dataset depends on.
const (
	colQuestion       = "Question"
	colLocation       = "LocationDesc"
	colValue          = "Data_Value"
	colCategory       = "StratificationCategory1"
	colStratification = "Stratification1"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// record is one survey row with a numeric value.
type record struct {
	location       string
	category       string
	stratification string
	value          float64
}

// Dataset holds survey rows grouped by question. It is read-only after Load
// and safe for concurrent use.
type Dataset struct {
	byQuestion map[string][]record
	rows       int
}

// Load reads the survey CSV at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}

// Parse reads survey CSV data from r. Rows without a finite numeric
// Data_Value (empty, text, NaN or infinite) are skipped, so missing values are
// left out of every mean.
func Parse(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	idx := make(map[string]int, 5)
	for _, name := range []string{colQuestion, colLocation, colValue, colCategory, colStratification} {
		i, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[name] = i
	}

	ds := &Dataset{byQuestion: make(map[string][]record)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		field := func(name string) string {
			if i := idx[name]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		v, err := strconv.ParseFloat(field(colValue), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		q := field(colQuestion)
		ds.byQuestion[q] = append(ds.byQuestion[q], record{
			location:       field(colLocation),
			category:       field(colCategory),
			stratification: field(colStratification),
			value:          v,
		})
		ds.rows++
	}

	return ds, nil
}

// Rows returns the number of rows with a numeric value.
func (d *Dataset) Rows() int {
	return d.rows
}

// Questions returns the distinct questions in the dataset, sorted.
func (d *Dataset) Questions() []string {
	qs := make([]string, 0, len(d.byQuestion))
	for q := range d.byQuestion {
		qs = append(qs, q)
	}
	sort.Strings(qs)
	return qs
}
