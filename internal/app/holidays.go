package app

import (
	"sync"
	"time"
)

// GetBerlinHolidays returns all public holidays in Berlin for the given year
func GetBerlinHolidays(year int) map[string]string {
	holidays := make(map[string]string)

	// Fixed holidays
	holidays[formatDate(year, 1, 1)] = "Neujahr"
	holidays[formatDate(year, 3, 8)] = "Internationaler Frauentag"
	holidays[formatDate(year, 5, 1)] = "Tag der Arbeit"
	holidays[formatDate(year, 10, 3)] = "Tag der Deutschen Einheit"
	holidays[formatDate(year, 12, 25)] = "1. Weihnachtstag"
	holidays[formatDate(year, 12, 26)] = "2. Weihnachtstag"

	// Easter-based holidays (movable)
	easter := calculateEaster(year)

	// Karfreitag (Good Friday): Easter - 2 days
	holidays[formatDateFromTime(easter.AddDate(0, 0, -2))] = "Karfreitag"

	// Ostermontag (Easter Monday): Easter + 1 day
	holidays[formatDateFromTime(easter.AddDate(0, 0, 1))] = "Ostermontag"

	// Christi Himmelfahrt (Ascension Day): Easter + 39 days
	holidays[formatDateFromTime(easter.AddDate(0, 0, 39))] = "Christi Himmelfahrt"

	// Pfingstmontag (Whit Monday): Easter + 50 days
	holidays[formatDateFromTime(easter.AddDate(0, 0, 50))] = "Pfingstmontag"

	return holidays
}

// HolidayCalendar answers holiday lookups across years, computing each
// year once
type HolidayCalendar struct {
	mu    sync.Mutex
	years map[int]map[string]string
}

// NewHolidayCalendar creates an empty calendar
func NewHolidayCalendar() *HolidayCalendar {
	return &HolidayCalendar{years: make(map[int]map[string]string)}
}

// Lookup names the Berlin holiday on a YYYY-MM-DD date
func (h *HolidayCalendar) Lookup(date string) (string, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", false
	}

	name, ok := h.year(t.Year())[date]
	return name, ok
}

// year returns the cached holidays of one year. The maps are never
// mutated after being stored.
func (h *HolidayCalendar) year(y int) map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	holidays, ok := h.years[y]
	if !ok {
		holidays = GetBerlinHolidays(y)
		h.years[y] = holidays
	}
	return holidays
}

// Range merges the holidays of the years from..to inclusive
func (h *HolidayCalendar) Range(from, to int) map[string]string {
	merged := make(map[string]string)
	for year := from; year <= to; year++ {
		for date, name := range h.year(year) {
			merged[date] = name
		}
	}
	return merged
}

// calculateEaster calculates Easter Sunday using the Meeus/Jones/Butcher algorithm
func calculateEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	// noon keeps the date stable when formatting
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
}

func formatDate(year, month, day int) string {
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC).Format("2006-01-02")
}

func formatDateFromTime(t time.Time) string {
	return t.Format("2006-01-02")
}
