package notion

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gitea.jw6.us/james/notioncal/internal/feed"
)

// Source fetches feed records from a Notion database using the configured
// property names.
type Source struct {
	client *Client
	opts   feed.Options
}

// NewSource returns a Source querying through client.
func NewSource(client *Client, opts feed.Options) *Source {
	return &Source{client: client, opts: opts}
}

// DatedRecords returns records dated on or after since, newest first.
func (s *Source) DatedRecords(ctx context.Context, databaseID string, since time.Time) ([]feed.Record, error) {
	pages, err := s.client.QueryDatabase(ctx, databaseID, DatedSince(s.opts.DateProperty, since))
	if err != nil {
		return nil, err
	}
	return parsePages(pages), nil
}

// UndatedRecords returns open records that have no date.
func (s *Source) UndatedRecords(ctx context.Context, databaseID string) ([]feed.Record, error) {
	pages, err := s.client.QueryDatabase(ctx, databaseID, OpenUndated(s.opts.DateProperty, s.opts.DoneProperty))
	if err != nil {
		return nil, err
	}
	return parsePages(pages), nil
}

func parsePages(pages []json.RawMessage) []feed.Record {
	records := make([]feed.Record, 0, len(pages))
	skipped := 0
	for _, raw := range pages {
		rec, ok := ParsePage(raw)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		log.Printf("[INFO] skipped %d result(s) without page properties", skipped)
	}
	return records
}
