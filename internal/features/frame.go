// ABOUTME: Date-indexed numeric table shared by the loader, merger, and trainer.
// ABOUTME: Missing cells are NaN; CSV encoding is deterministic for idempotent output.
package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateColumn is the canonical name of the date column in every Frame.
const DateColumn = "date"

const dateLayout = "2006-01-02"

// Frame is a table of float64 columns keyed by calendar date.
// Rows[i][j] holds Columns[j] on Dates[i]; math.NaN marks a missing cell.
type Frame struct {
	Columns []string
	Dates   []time.Time
	Rows    [][]float64
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Dates)
}

// ColumnIndex returns the position of name, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	j := f.ColumnIndex(name)
	if j < 0 {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[j]
	}
	return out, nil
}

// MaxDate returns the latest date, or ok=false for an empty frame.
func (f *Frame) MaxDate() (time.Time, bool) {
	if len(f.Dates) == 0 {
		return time.Time{}, false
	}
	max := f.Dates[0]
	for _, d := range f.Dates[1:] {
		if d.After(max) {
			max = d
		}
	}
	return max, true
}

// SortByDate orders rows chronologically, keeping the relative order of equal dates.
func (f *Frame) SortByDate() {
	idx := make([]int, len(f.Dates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return f.Dates[idx[a]].Before(f.Dates[idx[b]])
	})
	dates := make([]time.Time, len(idx))
	rows := make([][]float64, len(idx))
	for i, k := range idx {
		dates[i] = f.Dates[k]
		rows[i] = f.Rows[k]
	}
	f.Dates, f.Rows = dates, rows
}

// HasMissing reports whether any cell is NaN.
func (f *Frame) HasMissing() bool {
	for _, row := range f.Rows {
		for _, v := range row {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}

// HasDuplicateDates reports whether any date occurs more than once.
func (f *Frame) HasDuplicateDates() bool {
	seen := make(map[time.Time]struct{}, len(f.Dates))
	for _, d := range f.Dates {
		if _, ok := seen[d]; ok {
			return true
		}
		seen[d] = struct{}{}
	}
	return false
}

// FillForwardBackward sorts by date, then fills each missing cell from the
// previous row and any remaining leading gaps from the next row.
func (f *Frame) FillForwardBackward() {
	f.SortByDate()
	for j := range f.Columns {
		for i := 1; i < len(f.Rows); i++ {
			if math.IsNaN(f.Rows[i][j]) {
				f.Rows[i][j] = f.Rows[i-1][j]
			}
		}
		for i := len(f.Rows) - 2; i >= 0; i-- {
			if math.IsNaN(f.Rows[i][j]) {
				f.Rows[i][j] = f.Rows[i+1][j]
			}
		}
	}
}

// DropMissing removes every row that has a NaN cell.
func (f *Frame) DropMissing() {
	dates := f.Dates[:0:0]
	rows := f.Rows[:0:0]
	for i, row := range f.Rows {
		complete := true
		for _, v := range row {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			dates = append(dates, f.Dates[i])
			rows = append(rows, row)
		}
	}
	f.Dates, f.Rows = dates, rows
}

// CollapseByDate groups rows sharing a date into one row of per-column medians,
// sorted chronologically.
func (f *Frame) CollapseByDate() {
	groups := make(map[time.Time][]int)
	var order []time.Time
	for i, d := range f.Dates {
		if _, ok := groups[d]; !ok {
			order = append(order, d)
		}
		groups[d] = append(groups[d], i)
	}
	sort.Slice(order, func(a, b int) bool { return order[a].Before(order[b]) })

	dates := make([]time.Time, 0, len(order))
	rows := make([][]float64, 0, len(order))
	vals := make([]float64, 0)
	for _, d := range order {
		row := make([]float64, len(f.Columns))
		for j := range f.Columns {
			vals = vals[:0]
			for _, i := range groups[d] {
				vals = append(vals, f.Rows[i][j])
			}
			row[j] = median(vals)
		}
		dates = append(dates, d)
		rows = append(rows, row)
	}
	f.Dates, f.Rows = dates, rows
}

// WriteCSV encodes the frame with a leading date column.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{DateColumn}, f.Columns...)); err != nil {
		return err
	}
	record := make([]string, len(f.Columns)+1)
	for i, row := range f.Rows {
		record[0] = f.Dates[i].Format(dateLayout)
		for j, v := range row {
			record[j+1] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a frame written by WriteCSV.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 || header[0] != DateColumn {
		return nil, fmt.Errorf("first column must be %q", DateColumn)
	}

	f := &Frame{Columns: append([]string(nil), header[1:]...)}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		day, err := time.Parse(dateLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: parse date: %w", line, err)
		}
		row := make([]float64, len(f.Columns))
		for j, cell := range record[1:] {
			v, err := parseValue(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, f.Columns[j], err)
			}
			row[j] = v
		}
		f.Dates = append(f.Dates, day)
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// nullTokens are the raw cell values treated as missing.
var nullTokens = map[string]bool{"": true, " ": true, "NaN": true, "nan": true}

func parseValue(cell string) (float64, error) {
	if nullTokens[cell] || strings.TrimSpace(cell) == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", cell, err)
	}
	return v, nil
}

// median ignores NaN and averages the two middle values of an even count.
// It returns NaN when no value is present.
func median(vals []float64) float64 {
	present := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	n := len(present)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(present)
	if n%2 == 1 {
		return present[n/2]
	}
	return (present[n/2-1] + present[n/2]) / 2
}
