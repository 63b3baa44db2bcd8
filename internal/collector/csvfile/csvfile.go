// Package csvfile loads daily bars from Yahoo-style CSV exports
// (Date,Open,High,Low,Close,Adj Close,Volume).
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/stratsim/internal/collector"
	"github.com/newthinker/stratsim/internal/core"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"}

var requiredColumns = []string{"date", "open", "high", "low", "close"}

// Loader reads history from a CSV file, or from <dir>/<SYMBOL>.csv when
// its path is a directory.
type Loader struct {
	path     string
	interval string
}

// New creates a loader rooted at path.
func New(path string) *Loader {
	return &Loader{path: path, interval: "1d"}
}

func (l *Loader) Name() string {
	return "csv"
}

func (l *Loader) Init(cfg collector.Config) error {
	if cfg.Path != "" {
		l.path = cfg.Path
	}
	if cfg.Interval != "" {
		l.interval = cfg.Interval
	}
	if l.path == "" {
		return core.WrapError(core.ErrConfigMissing, errors.New("csv path is required"))
	}
	return nil
}

func (l *Loader) resolve(symbol string) (string, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return l.path, nil
	}
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return "", core.WrapError(core.ErrInvalidArgument, fmt.Errorf("invalid symbol %q", symbol))
	}
	return filepath.Join(l.path, symbol+".csv"), nil
}

// FetchHistory reads the CSV for symbol and returns the bars inside
// [start, end]. A zero start or end leaves that side unbounded.
func (l *Loader) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.resolve(symbol)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if interval == "" {
		interval = l.interval
	}
	bars, err := Parse(f, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return filter(bars, start, end), nil
}

// Parse reads bars from r. Rows with missing ("null" or empty) prices are
// skipped. The result is sorted by time.
func Parse(r io.Reader, symbol, interval string) ([]core.OHLCV, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.WrapError(core.ErrNoData, errors.New("empty csv"))
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("missing column %q", name))
		}
	}
	volumeCol, hasVolume := cols["volume"]

	var bars []core.OHLCV
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		t, err := parseDate(rec[cols["date"]])
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("line %d: %w", line, err))
		}

		var prices [4]float64
		missing := false
		for i, name := range requiredColumns[1:] {
			v, ok, err := parsePrice(rec[cols[name]])
			if err != nil {
				return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("line %d %s: %w", line, name, err))
			}
			if !ok {
				missing = true
				break
			}
			prices[i] = v
		}
		if missing {
			continue
		}

		bar := core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     prices[0],
			High:     prices[1],
			Low:      prices[2],
			Close:    prices[3],
			Time:     t,
		}
		if hasVolume {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[volumeCol]), 64); err == nil {
				bar.Volume = int64(v)
			}
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parsePrice(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("price %q is not finite", s)
	}
	return v, true, nil
}

func filter(bars []core.OHLCV, start, end time.Time) []core.OHLCV {
	out := bars[:0]
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
