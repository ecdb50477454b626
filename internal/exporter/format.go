package exporter

import (
	"fmt"
	"strconv"

	"bikedash/pkg/contracts/domain"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatValue prints sums and counts as integers and means with 2 decimals.
func formatValue(reducer domain.Reducer, v float64) string {
	if reducer == domain.ReducerMean {
		return formatFloat(v)
	}
	return formatInt(int64(v))
}

// formatRange prints a date range the way the dashboard shows it.
func formatRange(r domain.DateRange) string {
	if r.IsZero() {
		return "-"
	}
	return r.Start.Format(dateLayout) + " s/d " + r.End.Format(dateLayout)
}

const dateLayout = "2006-01-02"
