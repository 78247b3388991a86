package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/view"
)

var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://"+ICSUIDDomain+"/events"))

// Reminder asks for an alarm at a wall-clock time some days before the course
type Reminder struct {
	DaysBefore int
	At         string // HH:MM
}

// ICSOptions controls calendar generation
type ICSOptions struct {
	Name      string
	Publish   bool // subscription feed: METHOD:PUBLISH and refresh hint, no alarms
	Reminders []Reminder
	Now       time.Time
}

// EventUID returns the stable calendar UID of an event
func EventUID(id int) string {
	return uuid.NewSHA1(uidNamespace, []byte(strconv.Itoa(id))).String() + "@" + ICSUIDDomain
}

// WriteICS encodes events as an iCalendar document. Courses are all-day
// events spanning datum_beginn to datum_ende inclusive; events with an
// unparseable start are skipped.
func WriteICS(w io.Writer, events []store.Event, opts ICSOptions) error {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	name := opts.Name
	if name == "" {
		name = ICSCalendarName
	}

	cal := ical.NewCalendar()
	cal.Props.SetText("VERSION", "2.0")
	cal.Props.SetText("PRODID", ICSProductID)
	cal.Props.SetText("CALSCALE", "GREGORIAN")
	setRaw(cal.Props, "X-WR-CALNAME", name)
	setRaw(cal.Props, "X-WR-TIMEZONE", ICSTimezone)
	if opts.Publish {
		cal.Props.SetText("METHOD", "PUBLISH")
		setRaw(cal.Props, "X-PUBLISHED-TTL", ICSPublishedTTL)
	}
	// also keeps the calendar non-empty when no course matches
	cal.Children = append(cal.Children, berlinTimezone())

	stamp := opts.Now.UTC()
	for _, e := range events {
		info := e.EventInfo
		start, err := info.Start()
		if err != nil {
			continue
		}
		end, err := info.End()
		if err != nil || end.Before(start) {
			end = start
		}

		event := ical.NewEvent()
		event.Props.SetText("UID", EventUID(e.ID))
		event.Props.SetDateTime("DTSTAMP", stamp)
		event.Props.SetDate("DTSTART", start)
		event.Props.SetDate("DTEND", end.AddDate(0, 0, 1))
		event.Props.SetText("SUMMARY", info.Kurztitel)
		event.Props.SetText("DESCRIPTION", describe(e))
		event.Props.SetText("LOCATION", info.VaAdresse)

		setRaw(event.Props, ical.PropGeo, fmt.Sprintf("%.6f;%.6f", e.Latitude, e.Longitude))

		if !opts.Publish {
			for _, r := range opts.Reminders {
				if alarm := newAlarm(r, info.Kurztitel); alarm != nil {
					event.Children = append(event.Children, alarm)
				}
			}
		}

		cal.Children = append(cal.Children, event.Component)
	}

	return ical.NewEncoder(w).Encode(cal)
}

// setRaw sets a property without a VALUE parameter. go-ical marks unknown
// X- properties set through SetText as VALUE=TEXT.
func setRaw(props ical.Props, name, value string) {
	prop := ical.NewProp(name)
	prop.Value = value
	props.Set(prop)
}

// berlinTimezone describes Europe/Berlin with the EU daylight saving rules
func berlinTimezone() *ical.Component {
	tz := ical.NewComponent(ical.CompTimezone)
	setRaw(tz.Props, ical.PropTimezoneID, ICSTimezone)
	tz.Children = append(tz.Children,
		tzRule(ical.CompTimezoneDaylight, "CEST", "+0100", "+0200", "19700329T020000", "FREQ=YEARLY;BYMONTH=3;BYDAY=-1SU"),
		tzRule(ical.CompTimezoneStandard, "CET", "+0200", "+0100", "19701025T030000", "FREQ=YEARLY;BYMONTH=10;BYDAY=-1SU"),
	)
	return tz
}

func tzRule(kind, name, from, to, start, rule string) *ical.Component {
	c := ical.NewComponent(kind)
	setRaw(c.Props, ical.PropTimezoneName, name)
	setRaw(c.Props, ical.PropTimezoneOffsetFrom, from)
	setRaw(c.Props, ical.PropTimezoneOffsetTo, to)
	setRaw(c.Props, ical.PropDateTimeStart, start)
	setRaw(c.Props, ical.PropRecurrenceRule, rule)
	return c
}

func describe(e store.Event) string {
	info := e.EventInfo
	var b strings.Builder
	if info.VaName != "" {
		fmt.Fprintf(&b, "Veranstalter: %s\n", info.VaName)
	}
	fmt.Fprintf(&b, "Zeitraum: %s bis %s", view.FormatDate(info.DatumBeginn), view.FormatDate(info.DatumEnde))
	return b.String()
}

// newAlarm builds a VALARM, or nil for a malformed reminder
func newAlarm(r Reminder, summary string) *ical.Component {
	trigger, ok := alarmTrigger(r.DaysBefore, r.At)
	if !ok {
		return nil
	}

	alarm := ical.NewComponent(ical.CompAlarm)
	setRaw(alarm.Props, ical.PropAction, "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, "Erinnerung: "+summary)
	setRaw(alarm.Props, ical.PropTrigger, trigger)
	return alarm
}

// alarmTrigger converts "HH:MM, n days before" into a duration relative
// to the all-day start at midnight, e.g. -P0DT6H0M
func alarmTrigger(daysBefore int, at string) (string, bool) {
	if daysBefore < 0 {
		return "", false
	}
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return "", false
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}

	totalMinutes := hour*60 + minute - daysBefore*24*60
	sign := ""
	if totalMinutes < 0 {
		sign = "-"
		totalMinutes = -totalMinutes
	}

	days := totalMinutes / (24 * 60)
	rest := totalMinutes % (24 * 60)
	return fmt.Sprintf("%sP%dDT%dH%dM", sign, days, rest/60, rest%60), true
}

var csvHeader = []string{"ID", "Titel", "Veranstalter", "Ort", "Adresse", "Beginn", "Ende", "Breitengrad", "Längengrad"}

// WriteCSV writes one row per event with German date labels
func WriteCSV(w io.Writer, events []store.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range events {
		info := e.EventInfo
		record := []string{
			strconv.Itoa(e.ID),
			info.Kurztitel,
			info.VaName,
			info.Ort,
			info.VaAdresse,
			view.FormatDate(info.DatumBeginn),
			view.FormatDate(info.DatumEnde),
			strconv.FormatFloat(e.Latitude, 'f', 6, 64),
			strconv.FormatFloat(e.Longitude, 'f', 6, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the export document
func WriteJSON(w io.Writer, search string, events []store.Event, now time.Time) error {
	doc := ExportDocument{
		Search:      search,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Count:       len(events),
		Events:      events,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// exportFilename builds the attachment name for a download
func exportFilename(format string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", ExportBaseName, now.Format("2006-01-02"), format)
}
