package feed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
)

func TestSerializeFraming(t *testing.T) {
	doc := Serialize([]Event{
		{UID: "a", Title: "All day", Start: "2025-03-01", End: "2025-03-02", AllDay: true},
		{UID: "b", Title: "Timed", Start: "2025-01-01T10:00:00.000Z", End: "2025-01-01T11:00:00.000Z"},
	})

	if !strings.HasPrefix(doc, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Notion Calendar Export//EN\r\n") {
		t.Errorf("unexpected header:\n%s", doc)
	}
	if !strings.HasSuffix(doc, "END:VCALENDAR\r\n") {
		t.Errorf("unexpected footer:\n%s", doc)
	}
	if strings.Count(doc, "BEGIN:VEVENT\r\n") != 2 || strings.Count(doc, "END:VEVENT\r\n") != 2 {
		t.Errorf("expected two event blocks:\n%s", doc)
	}
	if strings.Contains(strings.ReplaceAll(doc, "\r\n", ""), "\n") {
		t.Error("found bare LF line ending")
	}
}

func TestSerializeEventFieldOrder(t *testing.T) {
	doc := Serialize([]Event{{
		UID:         "abc",
		Title:       "Launch",
		Start:       "2025-03-01",
		End:         "2025-03-02",
		AllDay:      true,
		Description: "https://www.notion.so/abc",
	}})

	want := strings.Join([]string{
		"BEGIN:VEVENT",
		"UID:abc",
		"SUMMARY:Launch",
		"DTSTART;VALUE=DATE:20250301",
		"DTEND;VALUE=DATE:20250302",
		"DESCRIPTION:https://www.notion.so/abc",
		"END:VEVENT",
	}, "\r\n")
	if !strings.Contains(doc, want) {
		t.Errorf("event block mismatch, got:\n%s", doc)
	}
}

func TestSerializeTimedAndDone(t *testing.T) {
	doc := Serialize([]Event{{
		UID:   "t",
		Title: "Standup",
		Start: "2025-01-01T10:00:00.000Z",
		End:   "2025-01-01T10:15:30.250Z",
		Done:  true,
	}})

	for _, want := range []string{
		"SUMMARY:✅ Standup\r\n",
		"DTSTART:20250101T100000Z\r\n",
		"DTEND:20250101T101530Z\r\n",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q in:\n%s", want, doc)
		}
	}
}

func TestFormatDateTime(t *testing.T) {
	tests := map[string]string{
		"2025-01-01T10:00:00.000Z":      "20250101T100000Z",
		"2025-01-01T10:00:00Z":          "20250101T100000Z",
		"2025-01-01T12:00:00.000+02:00": "20250101T100000Z",
	}
	for in, want := range tests {
		if got := FormatDateTime(in); got != want {
			t.Errorf("FormatDateTime(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeText(t *testing.T) {
	got := EscapeText("a,b;c\\d\r\ne")
	want := `a\,b\;c\\d\ne`
	if got != want {
		t.Errorf("EscapeText() = %q, want %q", got, want)
	}
}

func TestFoldLine(t *testing.T) {
	long := "DESCRIPTION:" + strings.Repeat("é", 100)
	folded := foldLine(long)
	for i, line := range strings.Split(folded, "\r\n") {
		if len(line) > maxLineOctet {
			t.Errorf("line %d is %d octets", i, len(line))
		}
		if i > 0 && !strings.HasPrefix(line, " ") {
			t.Errorf("continuation line %d missing leading space", i)
		}
	}
	unfolded := strings.ReplaceAll(folded, "\r\n ", "")
	if unfolded != long {
		t.Error("unfolding did not restore the original line")
	}
}

func TestSerializeInvalidUTF8Terminates(t *testing.T) {
	done := make(chan string, 1)
	go func() {
		done <- Serialize([]Event{{
			UID:    "bad",
			Title:  strings.Repeat("\x80", 200),
			Start:  "2025-03-01",
			End:    "2025-03-02",
			AllDay: true,
		}})
	}()

	select {
	case doc := <-done:
		for i, line := range strings.Split(doc, "\r\n") {
			if len(line) > maxLineOctet {
				t.Errorf("line %d is %d octets", i, len(line))
			}
		}
		if !strings.Contains(strings.ReplaceAll(doc, "\r\n ", ""), "SUMMARY:"+strings.Repeat("\x80", 200)+"\r\n") {
			t.Error("folded summary does not unfold to the original value")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serialize did not return")
	}
}

func TestSerializeParsesWithICalDecoder(t *testing.T) {
	events := []Event{
		{UID: "launch", Title: "Launch, v2; final", Start: "2025-03-01", End: "2025-03-02", AllDay: true, Description: "https://www.notion.so/launch"},
		{UID: "standup", Title: "Standup", Start: "2025-01-01T10:00:00.000Z", End: "2025-01-01T10:30:00.000Z", Done: true},
		{
			UID:         OverdueUID("2025-06-01"),
			Title:       strings.TrimSuffix(strings.Repeat("Overdue item • ", 12), " • "),
			Start:       "2025-06-01",
			End:         "2025-06-02",
			AllDay:      true,
			Description: "https://www.notion.so/db\n\nA\nhttps://www.notion.so/a",
		},
	}

	var buf bytes.Buffer
	if err := WriteCalendar(&buf, events); err != nil {
		t.Fatalf("WriteCalendar: %v", err)
	}

	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("decode generated calendar: %v", err)
	}

	parsed := cal.Events()
	if len(parsed) != len(events) {
		t.Fatalf("decoded %d events, want %d", len(parsed), len(events))
	}

	summary, err := parsed[0].Props.Get(ical.PropSummary).Text()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary != "Launch, v2; final" {
		t.Errorf("summary = %q", summary)
	}

	start, err := parsed[1].DateTimeStart(time.UTC)
	if err != nil {
		t.Fatalf("DateTimeStart: %v", err)
	}
	if !start.Equal(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}

	desc, err := parsed[2].Props.Get(ical.PropDescription).Text()
	if err != nil {
		t.Fatalf("description: %v", err)
	}
	if desc != events[2].Description {
		t.Errorf("description = %q, want %q", desc, events[2].Description)
	}
	title, err := parsed[2].Props.Get(ical.PropSummary).Text()
	if err != nil {
		t.Fatalf("aggregate summary: %v", err)
	}
	if title != events[2].Title {
		t.Errorf("folded summary did not round-trip: %q", title)
	}
}
