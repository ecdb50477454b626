// Package dataprocessing turns a bike-rental dataset into the summary tables the
// dashboard plots.
//
// # Pipeline
//
// Every render pass runs the same steps over an immutable record set:
//
//	file → Loader (ParseTimestamps, category parsing) → []RentalRecord
//	     → FilterByRange(DateRange) → GroupAndReduce(keys, measures, reducer) → AggregateTable
//
// The loader accepts CSV (read as a gota data frame of strings) and XLSX
// (first sheet, read with excelize). Column names may use the UCI day.csv
// spelling (dteday, weathersit, yr, mnth, cnt). A single bad cell fails the
// whole load with a ParseError or InvalidFlagError carrying its row; an absent
// input is a MissingFileError.
//
// # Usage
//
//	loader := dataprocessing.NewLoader(logger)
//	result, err := loader.LoadFile(ctx, "data/day.csv")
//	if err != nil {
//	    return err
//	}
//	inRange := dataprocessing.FilterByRange(result.Records, domain.NewDateRange(start, end))
//	table, err := dataprocessing.GroupAndReduce(inRange,
//	    []domain.Dimension{domain.DimensionWeather},
//	    []domain.Measure{domain.MeasureCasual, domain.MeasureRegistered},
//	    domain.ReducerMean)
//
// All functions are pure with respect to their inputs and safe for concurrent use.
package dataprocessing
