package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateRowValue(t *testing.T) {
	sumRow := AggregateRow{
		Keys:   map[Dimension]string{DimensionSeason: "Spring"},
		Values: map[Measure]float64{MeasureCasual: 120},
		Count:  4,
	}
	countRow := AggregateRow{
		Keys:  map[Dimension]string{DimensionSeason: "Spring"},
		Count: 4,
	}

	tests := []struct {
		name    string
		row     AggregateRow
		measure Measure
		want    float64
		wantOK  bool
	}{
		{name: "reduced measure", row: sumRow, measure: MeasureCasual, want: 120, wantOK: true},
		{name: "measure absent from sum table", row: sumRow, measure: MeasureRegistered, want: 0, wantOK: false},
		{name: "count table answers group size", row: countRow, measure: MeasureCount, want: 4, wantOK: true},
		{name: "count table ignores measure", row: countRow, measure: MeasureCasual, want: 4, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.row.Measure(tt.measure)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, tt.row.Value(tt.measure))
		})
	}
}
