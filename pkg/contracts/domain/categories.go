package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownCategory is returned when a raw value does not belong to the
// value set of a categorical dimension.
var ErrUnknownCategory = errors.New("unknown category value")

// Category is implemented by every categorical attribute of a RentalRecord.
// String is the display label, Ordinal the natural display order.
type Category interface {
	String() string
	Ordinal() int
}

// normalizeLabel lowercases a raw label and folds separators so that
// "Light_RainSnow", "light rain snow" and "light-rain-snow" compare equal.
func normalizeLabel(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.NewReplacer("_", " ", "-", " ", "/", " ", "+", " ").Replace(v)
	return strings.Join(strings.Fields(v), " ")
}

func unknown(dimension Dimension, v string) error {
	return fmt.Errorf("%w: %s %q", ErrUnknownCategory, dimension, v)
}

// Season of the year.
type Season int

const (
	SeasonSpring Season = iota + 1
	SeasonSummer
	SeasonFall
	SeasonWinter
)

var seasonLabels = [...]string{"", "Spring", "Summer", "Fall", "Winter"}

var seasonAliases = map[string]Season{
	"1": SeasonSpring, "spring": SeasonSpring, "springer": SeasonSpring,
	"2": SeasonSummer, "summer": SeasonSummer,
	"3": SeasonFall, "fall": SeasonFall, "autumn": SeasonFall,
	"4": SeasonWinter, "winter": SeasonWinter,
}

// ParseSeason accepts the label, a known alias or the UCI code 1..4.
func ParseSeason(v string) (Season, error) {
	if s, ok := seasonAliases[normalizeLabel(v)]; ok {
		return s, nil
	}
	return 0, unknown(DimensionSeason, v)
}

func (s Season) Valid() bool  { return s >= SeasonSpring && s <= SeasonWinter }
func (s Season) Ordinal() int { return int(s) }

func (s Season) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return seasonLabels[s]
}

func (s Season) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Season) UnmarshalText(b []byte) error {
	v, err := ParseSeason(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// WeatherCondition is the weather situation of the day.
type WeatherCondition int

const (
	WeatherClear WeatherCondition = iota + 1
	WeatherMisty
	WeatherLightRain
	WeatherHeavyRain
)

var weatherLabels = [...]string{"", "Clear", "Misty", "Light Rain", "Heavy Rain"}

var weatherAliases = map[string]WeatherCondition{
	"1": WeatherClear, "clear": WeatherClear, "few clouds": WeatherClear, "partly cloudy": WeatherClear,
	"2": WeatherMisty, "misty": WeatherMisty, "mist": WeatherMisty, "cloudy": WeatherMisty, "mist cloudy": WeatherMisty,
	"3": WeatherLightRain, "light rain": WeatherLightRain, "light rainsnow": WeatherLightRain,
	"light rain snow": WeatherLightRain, "light snow": WeatherLightRain, "rain": WeatherLightRain,
	"4": WeatherHeavyRain, "heavy rain": WeatherHeavyRain, "heavy rainsnow": WeatherHeavyRain,
	"heavy rain snow": WeatherHeavyRain, "storm": WeatherHeavyRain,
}

// ParseWeatherCondition accepts the label, a known alias or the UCI code 1..4.
func ParseWeatherCondition(v string) (WeatherCondition, error) {
	if w, ok := weatherAliases[normalizeLabel(v)]; ok {
		return w, nil
	}
	return 0, unknown(DimensionWeather, v)
}

func (w WeatherCondition) Valid() bool  { return w >= WeatherClear && w <= WeatherHeavyRain }
func (w WeatherCondition) Ordinal() int { return int(w) }

func (w WeatherCondition) String() string {
	if !w.Valid() {
		return "Unknown"
	}
	return weatherLabels[w]
}

func (w WeatherCondition) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

func (w *WeatherCondition) UnmarshalText(b []byte) error {
	v, err := ParseWeatherCondition(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Weekday starts on Sunday, matching both time.Weekday and the UCI codes 0..6.
type Weekday int

const (
	WeekdaySunday Weekday = iota + 1
	WeekdayMonday
	WeekdayTuesday
	WeekdayWednesday
	WeekdayThursday
	WeekdayFriday
	WeekdaySaturday
)

var weekdayAliases = func() map[string]Weekday {
	m := make(map[string]Weekday, 21)
	for d := time.Sunday; d <= time.Saturday; d++ {
		wd := WeekdayFromTime(d)
		name := strings.ToLower(d.String())
		m[name] = wd
		m[name[:3]] = wd
		m[strconv.Itoa(int(d))] = wd
	}
	return m
}()

// WeekdayFromTime converts a time.Weekday.
func WeekdayFromTime(d time.Weekday) Weekday { return Weekday(d) + 1 }

// ParseWeekday accepts a full or abbreviated English day name or the UCI code 0..6.
func ParseWeekday(v string) (Weekday, error) {
	if d, ok := weekdayAliases[normalizeLabel(v)]; ok {
		return d, nil
	}
	return 0, unknown(DimensionWeekday, v)
}

func (d Weekday) Valid() bool  { return d >= WeekdaySunday && d <= WeekdaySaturday }
func (d Weekday) Ordinal() int { return int(d) }

func (d Weekday) String() string {
	if !d.Valid() {
		return "Unknown"
	}
	return time.Weekday(d - 1).String()
}

func (d Weekday) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Weekday) UnmarshalText(b []byte) error {
	v, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Month of the year, January is 1.
type Month int

var monthAliases = func() map[string]Month {
	m := make(map[string]Month, 36)
	for mo := time.January; mo <= time.December; mo++ {
		name := strings.ToLower(mo.String())
		m[name] = Month(mo)
		m[name[:3]] = Month(mo)
		m[strconv.Itoa(int(mo))] = Month(mo)
	}
	m["sept"] = Month(time.September)
	return m
}()

// ParseMonth accepts a full or abbreviated English month name or 1..12.
func ParseMonth(v string) (Month, error) {
	if mo, ok := monthAliases[normalizeLabel(v)]; ok {
		return mo, nil
	}
	return 0, unknown(DimensionMonth, v)
}

func (m Month) Valid() bool  { return m >= 1 && m <= 12 }
func (m Month) Ordinal() int { return int(m) }

func (m Month) String() string {
	if !m.Valid() {
		return "Unknown"
	}
	return time.Month(m).String()
}

func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Month) UnmarshalText(b []byte) error {
	v, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Year is categorical: it is grouped on, never summed.
type Year int

const (
	minYear = 2000
	maxYear = 2099
)

// ParseYear accepts a four digit year or the UCI codes 0 (2011) and 1 (2012).
func ParseYear(v string) (Year, error) {
	s := strings.TrimSpace(v)
	switch s {
	case "0":
		return 2011, nil
	case "1":
		return 2012, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minYear || n > maxYear {
		return 0, unknown(DimensionYear, v)
	}
	return Year(n), nil
}

func (y Year) Valid() bool    { return y >= minYear && y <= maxYear }
func (y Year) Ordinal() int   { return int(y) }
func (y Year) String() string { return strconv.Itoa(int(y)) }

// WorkingDay is the display label derived from the raw workingday flag.
type WorkingDay int

const (
	DayWorking WorkingDay = iota + 1
	DayOff
)

const (
	LabelWorkingDay = "Hari Kerja"
	LabelHoliday    = "Hari Libur"
)

// ParseWorkingDay maps a display label back to its value. Raw 0/1 flags go
// through the loader instead, which reports out-of-domain flags.
func ParseWorkingDay(v string) (WorkingDay, error) {
	switch normalizeLabel(v) {
	case "hari kerja", "working day", "workingday":
		return DayWorking, nil
	case "hari libur", "holiday", "weekend":
		return DayOff, nil
	}
	return 0, unknown(DimensionWorkingDay, v)
}

func (w WorkingDay) Valid() bool  { return w == DayWorking || w == DayOff }
func (w WorkingDay) Ordinal() int { return int(w) }

func (w WorkingDay) String() string {
	switch w {
	case DayWorking:
		return LabelWorkingDay
	case DayOff:
		return LabelHoliday
	}
	return "Unknown"
}

func (w WorkingDay) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

func (w *WorkingDay) UnmarshalText(b []byte) error {
	v, err := ParseWorkingDay(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}
