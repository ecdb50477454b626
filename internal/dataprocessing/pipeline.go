package dataprocessing

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"bikedash/pkg/contracts/domain"
)

// ColumnTimestamp is the canonical name of the timestamp column.
const ColumnTimestamp = "datetime"

// timestampLayouts are tried in order.
var timestampLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
}

// ParseTimestamp parses a single timestamp cell.
func ParseTimestamp(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// ParseTimestamps converts a column of textual timestamps. The first value
// that cannot be parsed fails the whole column.
func ParseTimestamps(values []string) ([]time.Time, error) {
	out := make([]time.Time, len(values))
	for i, v := range values {
		t, err := ParseTimestamp(v)
		if err != nil {
			return nil, &ParseError{Row: i + 1, Column: ColumnTimestamp, Value: v, Err: err}
		}
		out[i] = t
	}
	return out, nil
}

// FilterByRange returns the records with Start <= Timestamp <= End in their
// original order. A range whose End precedes Start is treated as the single
// date Start. The result never aliases records.
func FilterByRange(records []domain.RentalRecord, r domain.DateRange) []domain.RentalRecord {
	r = r.Normalized()
	out := make([]domain.RentalRecord, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.Timestamp) {
			out = append(out, rec)
		}
	}
	return out
}

// Bounds is the range spanning the earliest and latest timestamps.
func Bounds(records []domain.RentalRecord) domain.DateRange {
	if len(records) == 0 {
		return domain.DateRange{}
	}
	lo, hi := records[0].Timestamp, records[0].Timestamp
	for _, rec := range records[1:] {
		if rec.Timestamp.Before(lo) {
			lo = rec.Timestamp
		}
		if rec.Timestamp.After(hi) {
			hi = rec.Timestamp
		}
	}
	return domain.DateRange{Start: lo, End: hi}
}

// Sum totals a measure over records.
func Sum(records []domain.RentalRecord, m domain.Measure) int64 {
	var total int64
	for _, rec := range records {
		v, _ := rec.Value(m)
		total += int64(v)
	}
	return total
}

// DeriveWorkingDayLabel maps the raw workingday flag: 1 is a working day,
// 0 a holiday. Anything else is an InvalidFlagError.
func DeriveWorkingDayLabel(flag int) (domain.WorkingDay, error) {
	switch flag {
	case 1:
		return domain.DayWorking, nil
	case 0:
		return domain.DayOff, nil
	}
	return 0, &InvalidFlagError{Value: strconv.Itoa(flag)}
}

// groupKey holds the ordinals of up to two grouping dimensions.
type groupKey [2]int

type group struct {
	key   groupKey
	cats  []domain.Category
	sums  []float64
	count int
}

// GroupAndReduce groups records by one or two dimensions and reduces each
// measure per group with reducer. Every key combination present in records
// yields exactly one row. Rows are ordered by key ordinals; callers must not
// depend on that order. ReducerCount ignores measures.
func GroupAndReduce(records []domain.RentalRecord, keys []domain.Dimension, measures []domain.Measure, reducer domain.Reducer) (domain.AggregateTable, error) {
	if err := validateGrouping(keys, measures, reducer); err != nil {
		return domain.AggregateTable{}, err
	}
	if reducer == domain.ReducerCount {
		measures = nil
	}

	index := make(map[groupKey]*group)
	groups := make([]*group, 0)

	for _, rec := range records {
		var k groupKey
		cats := make([]domain.Category, len(keys))
		for i, d := range keys {
			c, _ := rec.Category(d)
			cats[i] = c
			k[i] = c.Ordinal()
		}

		g, ok := index[k]
		if !ok {
			g = &group{key: k, cats: cats, sums: make([]float64, len(measures))}
			index[k] = g
			groups = append(groups, g)
		}
		g.count++
		for i, m := range measures {
			v, _ := rec.Value(m)
			g.sums[i] += float64(v)
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].key, groups[j].key
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})

	table := domain.AggregateTable{
		Keys:     append([]domain.Dimension(nil), keys...),
		Measures: append([]domain.Measure{}, measures...),
		Reducer:  reducer,
		Levels:   make(map[domain.Dimension][]string, len(keys)),
		Rows:     make([]domain.AggregateRow, 0, len(groups)),
	}

	for _, g := range groups {
		row := domain.AggregateRow{
			Keys:   make(map[domain.Dimension]string, len(keys)),
			Values: make(map[domain.Measure]float64, len(measures)),
			Count:  g.count,
		}
		for i, d := range keys {
			row.Keys[d] = g.cats[i].String()
		}
		for i, m := range measures {
			v := g.sums[i]
			if reducer == domain.ReducerMean {
				v /= float64(g.count)
			}
			row.Values[m] = v
		}
		table.Rows = append(table.Rows, row)
	}

	for i, d := range keys {
		table.Levels[d] = levels(groups, i)
	}

	return table, nil
}

// levels lists the distinct labels of key position i ordered by ordinal.
func levels(groups []*group, i int) []string {
	seen := make(map[int]domain.Category)
	for _, g := range groups {
		seen[g.key[i]] = g.cats[i]
	}
	ordinals := make([]int, 0, len(seen))
	for o := range seen {
		ordinals = append(ordinals, o)
	}
	sort.Ints(ordinals)
	out := make([]string, len(ordinals))
	for j, o := range ordinals {
		out[j] = seen[o].String()
	}
	return out
}

func validateGrouping(keys []domain.Dimension, measures []domain.Measure, reducer domain.Reducer) error {
	if len(keys) == 0 || len(keys) > 2 {
		return fmt.Errorf("%w: need one or two group keys, got %d", ErrInvalidGrouping, len(keys))
	}
	for _, d := range keys {
		if !d.Valid() {
			return fmt.Errorf("%w: unknown dimension %q", ErrInvalidGrouping, d)
		}
	}
	if len(keys) == 2 && keys[0] == keys[1] {
		return fmt.Errorf("%w: dimension %q used twice", ErrInvalidGrouping, keys[0])
	}
	if !reducer.Valid() {
		return fmt.Errorf("%w: unknown reducer %q", ErrInvalidGrouping, reducer)
	}
	if reducer == domain.ReducerCount {
		return nil
	}
	if len(measures) == 0 {
		return fmt.Errorf("%w: reducer %q needs at least one measure", ErrInvalidGrouping, reducer)
	}
	for _, m := range measures {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown measure %q", ErrInvalidGrouping, m)
		}
	}
	return nil
}

// AddTotalColumn returns a copy of t with a name column holding the sum of
// the table's measures on every row. t is left untouched.
func AddTotalColumn(t domain.AggregateTable, name domain.Measure) (domain.AggregateTable, error) {
	if t.Reducer == domain.ReducerCount {
		return domain.AggregateTable{}, errors.New("total column needs a sum or mean table")
	}
	out := t
	out.Measures = append(append([]domain.Measure{}, t.Measures...), name)
	out.Rows = make([]domain.AggregateRow, len(t.Rows))
	for i, row := range t.Rows {
		values := make(map[domain.Measure]float64, len(row.Values)+1)
		var total float64
		for _, m := range t.Measures {
			values[m] = row.Values[m]
			total += row.Values[m]
		}
		values[name] = total
		out.Rows[i] = domain.AggregateRow{Keys: row.Keys, Values: values, Count: row.Count}
	}
	return out, nil
}
