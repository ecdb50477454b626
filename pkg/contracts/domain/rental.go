package domain

import (
	"time"
)

// RentalRecord is one day of the bike-rental dataset.
// Count is expected to equal Casual + Registered; the loader reports
// rows where it does not but keeps them.
type RentalRecord struct {
	Timestamp        time.Time        `json:"datetime"`
	Season           Season           `json:"season"`
	WeatherCondition WeatherCondition `json:"weather_condition"`
	Weekday          Weekday          `json:"weekday"`
	Month            Month            `json:"month"`
	Year             Year             `json:"year"`
	WorkingDay       WorkingDay       `json:"is_working_day"`
	Casual           int              `json:"casual" validate:"min=0"`
	Registered       int              `json:"registered" validate:"min=0"`
	Count            int              `json:"count" validate:"min=0"`
}

// Dimension names a categorical attribute records can be grouped by.
type Dimension string

const (
	DimensionSeason     Dimension = "season"
	DimensionWeather    Dimension = "weather_condition"
	DimensionWeekday    Dimension = "weekday"
	DimensionMonth      Dimension = "month"
	DimensionYear       Dimension = "year"
	DimensionWorkingDay Dimension = "is_working_day"
)

// Dimensions lists every groupable attribute.
var Dimensions = []Dimension{
	DimensionSeason, DimensionWeather, DimensionWeekday,
	DimensionMonth, DimensionYear, DimensionWorkingDay,
}

func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// Measure names a numeric attribute that can be reduced.
type Measure string

const (
	MeasureCasual     Measure = "casual"
	MeasureRegistered Measure = "registered"
	MeasureCount      Measure = "count"
	// MeasureTotal only exists on aggregate tables, as casual + registered.
	MeasureTotal Measure = "total"
)

// Measures lists the measures a RentalRecord carries.
var Measures = []Measure{MeasureCasual, MeasureRegistered, MeasureCount}

func (m Measure) Valid() bool {
	return m == MeasureCasual || m == MeasureRegistered || m == MeasureCount
}

// Reducer selects how a group's measures are reduced.
type Reducer string

const (
	ReducerSum   Reducer = "sum"
	ReducerMean  Reducer = "mean"
	ReducerCount Reducer = "count"
)

func (r Reducer) Valid() bool {
	return r == ReducerSum || r == ReducerMean || r == ReducerCount
}

// Category returns the record's value for a dimension.
func (r RentalRecord) Category(d Dimension) (Category, bool) {
	switch d {
	case DimensionSeason:
		return r.Season, true
	case DimensionWeather:
		return r.WeatherCondition, true
	case DimensionWeekday:
		return r.Weekday, true
	case DimensionMonth:
		return r.Month, true
	case DimensionYear:
		return r.Year, true
	case DimensionWorkingDay:
		return r.WorkingDay, true
	}
	return nil, false
}

// Value returns the record's value for a measure.
func (r RentalRecord) Value(m Measure) (int, bool) {
	switch m {
	case MeasureCasual:
		return r.Casual, true
	case MeasureRegistered:
		return r.Registered, true
	case MeasureCount:
		return r.Count, true
	}
	return 0, false
}

// DateRange is an inclusive [Start, End] interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a range, collapsing End onto Start when End precedes it.
// Picking a single date in the dashboard produces exactly that collapse.
func NewDateRange(start, end time.Time) DateRange {
	if end.Before(start) {
		end = start
	}
	return DateRange{Start: start, End: end}
}

// SingleDate is the range containing only d.
func SingleDate(d time.Time) DateRange {
	return DateRange{Start: d, End: d}
}

// Normalized returns the range with the End < Start collapse applied.
func (r DateRange) Normalized() DateRange {
	return NewDateRange(r.Start, r.End)
}

// Contains reports whether Start <= t <= End.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}
