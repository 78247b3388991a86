package view

import (
	"github.com/klabast/wb-services/bildungszeit-finder/internal/catalog"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
)

const germanDate = "02.01.2006"

// Row is one line of the events table
type Row struct {
	ID          int    `json:"id"`
	Kurztitel   string `json:"kurztitel"`
	VaName      string `json:"va_name"`
	Ort         string `json:"ort"`
	VaAdresse   string `json:"va_adresse"`
	DatumBeginn string `json:"datum_beginn"`
	DatumEnde   string `json:"datum_ende"`
	StartLabel  string `json:"start_label"`
	EndLabel    string `json:"end_label"`
	Holiday     string `json:"holiday,omitempty"`
	Selected    bool   `json:"selected"`
}

// HolidayFunc names the public holiday on a YYYY-MM-DD date, if any
type HolidayFunc func(date string) (string, bool)

// Rows converts events into table rows
func Rows(events []store.Event, s State, holiday HolidayFunc) []Row {
	rows := make([]Row, 0, len(events))
	for _, e := range events {
		info := e.EventInfo
		row := Row{
			ID:          e.ID,
			Kurztitel:   info.Kurztitel,
			VaName:      info.VaName,
			Ort:         info.Ort,
			VaAdresse:   info.VaAdresse,
			DatumBeginn: info.DatumBeginn,
			DatumEnde:   info.DatumEnde,
			StartLabel:  FormatDate(info.DatumBeginn),
			EndLabel:    FormatDate(info.DatumEnde),
			Selected:    s.SelectedID != nil && *s.SelectedID == e.ID,
		}
		if holiday != nil {
			if start, err := info.Start(); err == nil {
				if name, ok := holiday(start.Format("2006-01-02")); ok {
					row.Holiday = name
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatDate renders a catalog date as dd.mm.yyyy. Empty or unparseable
// input yields an empty label.
func FormatDate(value string) string {
	if value == "" {
		return ""
	}
	t, err := catalog.ParseDate(value)
	if err != nil {
		return ""
	}
	return t.Format(germanDate)
}
