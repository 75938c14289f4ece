// ABOUTME: Reads one raw latin-1 health export and reduces it to one row per calendar date.
// ABOUTME: Generic sources take per-column medians; heart sources take max/min/median.
package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/harperreed/stress/internal/config"
	"golang.org/x/text/encoding/charmap"
)

// timestampLayouts are tried in order when parsing a raw date cell.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// LoadSource opens src.FilePath and aggregates it into a DailyAggregate frame.
func LoadSource(src config.Source) (*Frame, error) {
	file, err := os.Open(src.FilePath)
	if err != nil {
		return nil, &LoadError{Source: src.Name, Path: src.FilePath, Err: err}
	}
	defer func() { _ = file.Close() }()

	f, err := Load(file, src)
	if err != nil {
		return nil, &LoadError{Source: src.Name, Path: src.FilePath, Err: err}
	}
	return f, nil
}

// Load aggregates a raw export read from r. The first line is an export
// metadata line; the column header is on the second.
func Load(r io.Reader, src config.Source) (*Frame, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, errors.New("empty export")
		}
		return nil, fmt.Errorf("read metadata line: %w", err)
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	raw, err := selectColumns(header, src)
	if err != nil {
		return nil, err
	}

	dateIdx := indexOf(header, src.DateColumn)
	colIdx := make([]int, len(raw))
	for i, name := range raw {
		colIdx[i] = indexOf(header, name)
	}

	rows := &Frame{Columns: raw}
	for line := 3; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if dateIdx >= len(record) || nullTokens[record[dateIdx]] {
			continue
		}
		day, err := parseDay(record[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make([]float64, len(colIdx))
		for j, idx := range colIdx {
			if idx >= len(record) {
				row[j] = math.NaN()
				continue
			}
			v, err := parseValue(record[idx])
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, raw[j], err)
			}
			row[j] = v
		}
		rows.Dates = append(rows.Dates, day)
		rows.Rows = append(rows.Rows, row)
	}

	var daily *Frame
	if src.Type == config.SourceTypeHeart {
		daily = aggregateHeart(rows, src.Heart)
	} else {
		rows.CollapseByDate()
		daily = rows
		for j, name := range daily.Columns {
			daily.Columns[j] = src.Prefix + name
		}
	}

	if daily.HasMissing() {
		daily.FillForwardBackward()
	}
	return daily, nil
}

// selectColumns returns the raw columns the source keeps, checking each exists.
func selectColumns(header []string, src config.Source) ([]string, error) {
	if indexOf(header, src.DateColumn) < 0 {
		return nil, fmt.Errorf("date column %q not found", src.DateColumn)
	}

	var cols []string
	if src.Type == config.SourceTypeHeart {
		if src.Heart == nil {
			return nil, errors.New("heart source has no column mapping")
		}
		cols = []string{src.Heart.MaxColumn, src.Heart.MinColumn, src.Heart.RateColumn}
	} else {
		cols = append([]string(nil), src.Columns...)
	}

	for _, name := range cols {
		if indexOf(header, name) < 0 {
			return nil, fmt.Errorf("column %q not found", name)
		}
	}
	return cols, nil
}

// aggregateHeart reduces raw heart rows (max, min, rate) to per-day max of
// maxima, min of minima, and median rate.
func aggregateHeart(rows *Frame, hc *config.HeartColumns) *Frame {
	byDay := make(map[time.Time][]int)
	for i, d := range rows.Dates {
		byDay[d] = append(byDay[d], i)
	}

	out := &Frame{Columns: []string{hc.MaxName, hc.MinName, hc.RateName}}
	for day, idx := range byDay {
		maxV, minV := math.NaN(), math.NaN()
		rates := make([]float64, 0, len(idx))
		for _, i := range idx {
			r := rows.Rows[i]
			if !math.IsNaN(r[0]) && (math.IsNaN(maxV) || r[0] > maxV) {
				maxV = r[0]
			}
			if !math.IsNaN(r[1]) && (math.IsNaN(minV) || r[1] < minV) {
				minV = r[1]
			}
			rates = append(rates, r[2])
		}
		out.Dates = append(out.Dates, day)
		out.Rows = append(out.Rows, []float64{maxV, minV, median(rates)})
	}
	out.SortByDate()
	return out
}

func parseDay(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", cell)
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}
