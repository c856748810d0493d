package feed

import (
	"strings"
)

const (
	overdueUIDPrefix = "overdue-aggregate-"
	titleSeparator   = " • "
)

// IsOverdue reports whether an incomplete record is undated or past its
// effective end date. Done records are never overdue.
func IsOverdue(date *DateRange, done bool, today string) bool {
	if done {
		return false
	}
	if !date.HasStart() {
		return true
	}
	return dateBefore(date.Effective(), today)
}

// OverdueUID returns the identifier of the aggregate event for a day.
func OverdueUID(today string) string {
	return overdueUIDPrefix + today
}

type overdueItem struct {
	title string
	url   string
}

// OverdueAggregator collects overdue records into a single all-day event.
type OverdueAggregator struct {
	today    string
	backlink string
	items    []overdueItem
}

// NewOverdueAggregator returns an aggregator for the given day. backlink is
// placed at the top of the aggregate description.
func NewOverdueAggregator(today, backlink string) *OverdueAggregator {
	return &OverdueAggregator{today: today, backlink: backlink}
}

// Observe records the item if it is overdue and reports whether it was.
func (a *OverdueAggregator) Observe(title, url string, date *DateRange, done bool) bool {
	if !IsOverdue(date, done, a.today) {
		return false
	}
	a.items = append(a.items, overdueItem{title: title, url: url})
	return true
}

// Len returns the number of overdue items seen so far.
func (a *OverdueAggregator) Len() int {
	return len(a.items)
}

// Event builds the aggregate event. ok is false when nothing is overdue.
func (a *OverdueAggregator) Event(tomorrow string) (ev Event, ok bool) {
	if len(a.items) == 0 {
		return Event{}, false
	}

	titles := make([]string, 0, len(a.items))
	blocks := make([]string, 0, len(a.items)+1)
	if a.backlink != "" {
		blocks = append(blocks, a.backlink)
	}
	for _, it := range a.items {
		titles = append(titles, it.title)
		block := it.title
		if it.url != "" {
			block += "\n" + it.url
		}
		blocks = append(blocks, block)
	}

	return Event{
		UID:         OverdueUID(a.today),
		Title:       strings.Join(titles, titleSeparator),
		Start:       a.today,
		End:         tomorrow,
		AllDay:      true,
		Description: strings.Join(blocks, "\n\n"),
	}, true
}
