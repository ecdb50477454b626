package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bikedash/pkg/contracts/domain"
)

// RentalCSV is FixtureRecords in the canonical column layout.
const RentalCSV = `datetime,season,weather_condition,weekday,month,year,workingday,casual,registered,count
2011-01-01,Spring,Clear,Sat,Jan,2011,0,10,100,110
2011-01-02,Spring,Clear,Sun,Jan,2011,0,20,200,220
2011-01-03,Spring,Light Rain,Mon,Jan,2011,1,5,50,55
2011-01-04,Summer,Light Rain,Tue,Jan,2011,1,15,150,165
2011-01-05,Summer,Misty,Wed,Jan,2012,1,7,70,77
`

// Fixture totals over all five records.
const (
	FixtureCasual     = 57
	FixtureRegistered = 570
	FixtureCount      = 627
)

// Day returns midnight UTC of the given January 2011 day.
func Day(d int) time.Time {
	return time.Date(2011, 1, d, 0, 0, 0, 0, time.UTC)
}

// FixtureRecords returns the five records described by RentalCSV.
func FixtureRecords() []domain.RentalRecord {
	return []domain.RentalRecord{
		{Timestamp: Day(1), Season: domain.SeasonSpring, WeatherCondition: domain.WeatherClear, Weekday: domain.WeekdaySaturday, Month: 1, Year: 2011, WorkingDay: domain.DayOff, Casual: 10, Registered: 100, Count: 110},
		{Timestamp: Day(2), Season: domain.SeasonSpring, WeatherCondition: domain.WeatherClear, Weekday: domain.WeekdaySunday, Month: 1, Year: 2011, WorkingDay: domain.DayOff, Casual: 20, Registered: 200, Count: 220},
		{Timestamp: Day(3), Season: domain.SeasonSpring, WeatherCondition: domain.WeatherLightRain, Weekday: domain.WeekdayMonday, Month: 1, Year: 2011, WorkingDay: domain.DayWorking, Casual: 5, Registered: 50, Count: 55},
		{Timestamp: Day(4), Season: domain.SeasonSummer, WeatherCondition: domain.WeatherLightRain, Weekday: domain.WeekdayTuesday, Month: 1, Year: 2011, WorkingDay: domain.DayWorking, Casual: 15, Registered: 150, Count: 165},
		{Timestamp: Day(5), Season: domain.SeasonSummer, WeatherCondition: domain.WeatherMisty, Weekday: domain.WeekdayWednesday, Month: 1, Year: 2012, WorkingDay: domain.DayWorking, Casual: 7, Registered: 70, Count: 77},
	}
}

// FixtureDataset wraps FixtureRecords in a loaded dataset.
func FixtureDataset(id string) *domain.Dataset {
	records := FixtureRecords()
	return &domain.Dataset{
		DatasetInfo: domain.DatasetInfo{
			ID:          id,
			Name:        "day.csv",
			Source:      domain.SourceUpload,
			Format:      domain.FormatCSV,
			LoadedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			Bounds:      domain.DateRange{Start: Day(1), End: Day(5)},
			RecordCount: len(records),
		},
		Records: records,
	}
}

// WriteFile writes content to name inside a fresh temp directory and
// returns the full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
