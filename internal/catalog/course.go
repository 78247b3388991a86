package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Course is a single entry of the Bildungszeit catalog index
type Course struct {
	ID          CourseID `json:"id"`
	Ort         string   `json:"ort"`
	Kurztitel   string   `json:"kurztitel"`
	VaAdresse   string   `json:"va_adresse"`
	DatumBeginn string   `json:"datum_beginn"`
	VaName      string   `json:"va_name"`
	DatumEnde   string   `json:"datum_ende"`
}

// Index is the payload returned by the catalog endpoint
type Index struct {
	Index []Course `json:"index"`
}

// CourseID accepts both numeric and quoted ids from the upstream feed
type CourseID int

func (id *CourseID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid course id %q: %w", s, err)
		}
		*id = CourseID(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid course id %s: %w", string(data), err)
	}
	*id = CourseID(n)
	return nil
}

// Supported date layouts, tried in order
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006",
}

// ParseDate parses a catalog date. Date-only values resolve to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", s)
}

// Start returns the parsed begin date
func (c Course) Start() (time.Time, error) {
	return ParseDate(c.DatumBeginn)
}

// End returns the parsed end date
func (c Course) End() (time.Time, error) {
	return ParseDate(c.DatumEnde)
}
