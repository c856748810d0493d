package feed

import (
	"io"
	"strings"
	"unicode/utf8"
)

const (
	// ContentType is the media type of a serialized feed.
	ContentType = "text/calendar; charset=utf-8"
	// Filename is the suggested attachment name of a serialized feed.
	Filename = "calendar.ics"

	productID    = "-//Notion Calendar Export//EN"
	doneMarker   = "✅ "
	maxLineOctet = 75
)

// Serialize renders events as an iCalendar document.
func Serialize(events []Event) string {
	var sb strings.Builder
	write := func(line string) {
		sb.WriteString(foldLine(line))
		sb.WriteString("\r\n")
	}

	write("BEGIN:VCALENDAR")
	write("VERSION:2.0")
	write("PRODID:" + productID)
	for _, ev := range events {
		for _, line := range eventLines(ev) {
			write(line)
		}
	}
	write("END:VCALENDAR")

	return sb.String()
}

// WriteCalendar writes the serialized document to w.
func WriteCalendar(w io.Writer, events []Event) error {
	_, err := io.WriteString(w, Serialize(events))
	return err
}

func eventLines(ev Event) []string {
	summary := ev.Title
	if ev.Done {
		summary = doneMarker + summary
	}
	return []string{
		"BEGIN:VEVENT",
		"UID:" + EscapeText(ev.UID),
		"SUMMARY:" + EscapeText(summary),
		dateProperty("DTSTART", ev.Start, ev.AllDay),
		dateProperty("DTEND", ev.End, ev.AllDay),
		"DESCRIPTION:" + EscapeText(ev.Description),
		"END:VEVENT",
	}
}

func dateProperty(name, value string, allDay bool) string {
	if allDay {
		return name + ";VALUE=DATE:" + FormatDate(value)
	}
	return name + ":" + FormatDateTime(value)
}

// FormatDate renders a YYYY-MM-DD date as an iCalendar DATE value.
func FormatDate(value string) string {
	return strings.ReplaceAll(datePortion(value), "-", "")
}

// FormatDateTime renders a timestamp as a UTC iCalendar DATE-TIME value.
func FormatDateTime(value string) string {
	if t, err := parseInstant(value); err == nil {
		return t.UTC().Format("20060102T150405Z")
	}
	v := strings.NewReplacer("-", "", ":", "").Replace(value)
	if i := strings.IndexAny(v, ".Z+"); i != -1 {
		v = v[:i]
	}
	return v + "Z"
}

// EscapeText escapes an iCalendar TEXT value.
func EscapeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// foldLine splits content lines longer than 75 octets without breaking a
// UTF-8 sequence. Continuation lines start with a single space.
func foldLine(line string) string {
	if len(line) <= maxLineOctet {
		return line
	}
	var sb strings.Builder
	limit := maxLineOctet
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			// No rune boundary in range; the line is not valid UTF-8.
			cut = limit
		}
		sb.WriteString(line[:cut])
		sb.WriteString("\r\n ")
		line = line[cut:]
		limit = maxLineOctet - 1
	}
	sb.WriteString(line)
	return sb.String()
}
