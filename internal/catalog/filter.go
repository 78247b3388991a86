package catalog

import (
	"strings"
	"time"
)

const (
	DefaultCity         = "Berlin"
	DefaultHorizonYears = 1
)

// FilterOptions controls which courses survive Filter
type FilterOptions struct {
	City         string
	HorizonYears int
}

// DefaultFilterOptions restricts to Berlin within one year from now
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		City:         DefaultCity,
		HorizonYears: DefaultHorizonYears,
	}
}

func (o FilterOptions) withDefaults() FilterOptions {
	if o.City == "" {
		o.City = DefaultCity
	}
	if o.HorizonYears <= 0 {
		o.HorizonYears = DefaultHorizonYears
	}
	return o
}

// Filter keeps courses that start at or after now, end within the horizon,
// take place in the configured city and carry the city in their address.
func Filter(courses []Course, now time.Time, opts FilterOptions) []Course {
	opts = opts.withDefaults()
	horizon := now.AddDate(opts.HorizonYears, 0, 0)

	filtered := make([]Course, 0, len(courses))
	for _, c := range courses {
		if c.Ort != opts.City || !strings.Contains(c.VaAdresse, opts.City) {
			continue
		}

		start, err := c.Start()
		if err != nil || start.Before(now) {
			continue
		}
		end, err := c.End()
		if err != nil || end.After(horizon) {
			continue
		}

		filtered = append(filtered, c)
	}
	return filtered
}

// Normalize flattens multi-line venue addresses into a single line
func Normalize(c Course) Course {
	c.VaAdresse = strings.ReplaceAll(c.VaAdresse, "\n", " ")
	return c
}

// Prepare filters and normalizes courses, preserving upstream order
func Prepare(courses []Course, now time.Time, opts FilterOptions) []Course {
	filtered := Filter(courses, now, opts)
	for i := range filtered {
		filtered[i] = Normalize(filtered[i])
	}
	return filtered
}
