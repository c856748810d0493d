package feed

import (
	"log"
	"strings"
	"time"
)

// Transformer maps records to calendar events for a single request.
type Transformer struct {
	opts Options
	loc  *time.Location
	now  func() time.Time
}

// NewTransformer returns a Transformer computing "today" in loc. A nil clock
// means time.Now.
func NewTransformer(opts Options, loc *time.Location, now func() time.Time) *Transformer {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Transformer{opts: opts.WithDefaults(), loc: loc, now: now}
}

// Result is the outcome of a Build.
type Result struct {
	Events []Event
	// Overdue is the number of records summarized by the aggregate event.
	Overdue int
}

// Build converts records, in order, into events and appends the overdue
// aggregate, if any, last. backlink points at the source database.
func (t *Transformer) Build(records []Record, backlink string) Result {
	today, tomorrow := TodayTomorrow(t.now(), t.loc)
	agg := NewOverdueAggregator(today, backlink)

	events := make([]Event, 0, len(records)+1)
	for _, rec := range records {
		if ev, ok := t.transform(rec, agg); ok {
			events = append(events, ev)
		}
	}

	if ev, ok := agg.Event(tomorrow); ok {
		events = append(events, ev)
	}
	return Result{Events: events, Overdue: agg.Len()}
}

func (t *Transformer) transform(rec Record, agg *OverdueAggregator) (Event, bool) {
	title := strings.TrimSpace(rec.Text(t.opts.TitleProperty))
	if title == "" {
		title = t.opts.UntitledTitle
	}
	date := rec.Date(t.opts.DateProperty)
	done := rec.Checked(t.opts.DoneProperty)

	agg.Observe(title, rec.URL, date, done)

	if !date.HasStart() {
		return Event{}, false
	}

	span, err := Normalize(*date)
	if err != nil {
		log.Printf("[WARN] skipping record %s: %v", rec.ID, err)
		return Event{}, false
	}

	return Event{
		UID:         rec.ID,
		Title:       title,
		Start:       span.Start,
		End:         span.End,
		AllDay:      span.AllDay,
		Done:        done,
		Description: rec.URL,
	}, true
}
