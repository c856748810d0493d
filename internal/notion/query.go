package notion

import (
	"time"
)

// Query is the body of a database query request.
type Query struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

// Filter is a property filter or an "and" compound of filters.
type Filter struct {
	Property string             `json:"property,omitempty"`
	Date     *DateCondition     `json:"date,omitempty"`
	Checkbox *CheckboxCondition `json:"checkbox,omitempty"`
	And      []Filter           `json:"and,omitempty"`
}

type DateCondition struct {
	IsEmpty    bool   `json:"is_empty,omitempty"`
	IsNotEmpty bool   `json:"is_not_empty,omitempty"`
	OnOrAfter  string `json:"on_or_after,omitempty"`
}

type CheckboxCondition struct {
	Equals bool `json:"equals"`
}

type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

// DatedSince selects records whose date property is set and on or after
// since, newest first.
func DatedSince(dateProperty string, since time.Time) Query {
	return Query{
		Filter: &Filter{And: []Filter{
			{Property: dateProperty, Date: &DateCondition{IsNotEmpty: true}},
			{Property: dateProperty, Date: &DateCondition{OnOrAfter: since.Format("2006-01-02")}},
		}},
		Sorts: []Sort{{Property: dateProperty, Direction: "descending"}},
	}
}

// OpenUndated selects records without a date that are not done.
func OpenUndated(dateProperty, doneProperty string) Query {
	return Query{
		Filter: &Filter{And: []Filter{
			{Property: dateProperty, Date: &DateCondition{IsEmpty: true}},
			{Property: doneProperty, Checkbox: &CheckboxCondition{Equals: false}},
		}},
	}
}
