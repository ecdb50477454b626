package domain

// AggregateRow is one group of an AggregateTable. Keys holds the display label
// for every grouping dimension, Values the reduced value for every measure and
// Count the number of records that fell into the group.
type AggregateRow struct {
	Keys   map[Dimension]string `json:"keys"`
	Values map[Measure]float64  `json:"values"`
	Count  int                  `json:"count"`
}

// Key returns the row's label for d, or "" when d is not a key of the table.
func (r AggregateRow) Key(d Dimension) string {
	return r.Keys[d]
}

// Value returns the reduced value for m, or 0 when the row holds no value
// for m. Rows of count tables carry no measure values and answer every
// measure with the group size.
func (r AggregateRow) Value(m Measure) float64 {
	v, _ := r.Measure(m)
	return v
}

// Measure is Value with a flag reporting whether the row holds m.
func (r AggregateRow) Measure(m Measure) (float64, bool) {
	if v, ok := r.Values[m]; ok {
		return v, true
	}
	if len(r.Values) == 0 {
		return float64(r.Count), true
	}
	return 0, false
}

// AggregateTable is the result of grouping records by one or two dimensions.
// Each key combination appears once. Levels lists, per dimension, the distinct
// labels present in display order; renderers use it for axes.
type AggregateTable struct {
	Keys     []Dimension            `json:"keys"`
	Measures []Measure              `json:"measures"`
	Reducer  Reducer                `json:"reducer"`
	Levels   map[Dimension][]string `json:"levels"`
	Rows     []AggregateRow         `json:"rows"`
}

// Len is the number of groups.
func (t AggregateTable) Len() int {
	return len(t.Rows)
}

// Lookup finds the row whose key labels equal labels, in key order.
func (t AggregateTable) Lookup(labels ...string) (AggregateRow, bool) {
	if len(labels) != len(t.Keys) {
		return AggregateRow{}, false
	}
rows:
	for _, row := range t.Rows {
		for i, d := range t.Keys {
			if row.Keys[d] != labels[i] {
				continue rows
			}
		}
		return row, true
	}
	return AggregateRow{}, false
}

// Column returns the values of m in row order.
func (t AggregateTable) Column(m Measure) []float64 {
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Value(m)
	}
	return out
}

// ValueColumns are the measure columns a renderer should draw. Count tables
// expose their group size under MeasureCount.
func (t AggregateTable) ValueColumns() []Measure {
	if t.Reducer == ReducerCount {
		return []Measure{MeasureCount}
	}
	return t.Measures
}
