package notion

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"gitea.jw6.us/james/notioncal/internal/feed"
)

// ErrInvalidDatabaseID is returned when a database reference has no 32-digit
// hex identifier.
var ErrInvalidDatabaseID = errors.New("invalid database id")

var databaseIDPattern = regexp.MustCompile(`(?i)[0-9a-f]{8}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{12}`)

type rawPage struct {
	Object     string                     `json:"object"`
	ID         string                     `json:"id"`
	URL        string                     `json:"url"`
	PublicURL  *string                    `json:"public_url"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type rawProperty struct {
	Type     string     `json:"type"`
	Title    []richText `json:"title"`
	RichText []richText `json:"rich_text"`
	Date     *rawDate   `json:"date"`
	Checkbox bool       `json:"checkbox"`
	URL      *string    `json:"url"`
}

type rawDate struct {
	Start string  `json:"start"`
	End   *string `json:"end"`
}

// ParsePage converts a page object into a feed record. ok is false when the
// object does not look like a database page; such objects are skipped.
func ParsePage(raw json.RawMessage) (rec feed.Record, ok bool) {
	var p rawPage
	if err := json.Unmarshal(raw, &p); err != nil {
		return feed.Record{}, false
	}
	if p.ID == "" || p.Properties == nil {
		return feed.Record{}, false
	}
	if p.Object != "" && p.Object != "page" {
		return feed.Record{}, false
	}

	rec = feed.Record{
		ID:         p.ID,
		URL:        p.URL,
		Properties: make(map[string]feed.Property, len(p.Properties)),
	}
	if p.PublicURL != nil && *p.PublicURL != "" {
		rec.URL = *p.PublicURL
	}

	for name, data := range p.Properties {
		var rp rawProperty
		if err := json.Unmarshal(data, &rp); err != nil {
			continue
		}
		rec.Properties[name] = convertProperty(rp)
	}
	return rec, true
}

func convertProperty(rp rawProperty) feed.Property {
	prop := feed.Property{Type: rp.Type}
	switch rp.Type {
	case feed.PropertyTitle:
		prop.Text = joinPlainText(rp.Title)
	case feed.PropertyRichText:
		prop.Text = joinPlainText(rp.RichText)
	case feed.PropertyDate:
		if rp.Date != nil && rp.Date.Start != "" {
			prop.Date = &feed.DateRange{Start: rp.Date.Start}
			if rp.Date.End != nil {
				prop.Date.End = *rp.Date.End
			}
		}
	case feed.PropertyCheckbox:
		prop.Checkbox = rp.Checkbox
	case feed.PropertyURL:
		if rp.URL != nil {
			prop.URL = *rp.URL
		}
	}
	return prop
}

func joinPlainText(parts []richText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return sb.String()
}

// NormalizeDatabaseID extracts a database identifier from a bare id or a
// Notion URL and returns it without dashes.
func NormalizeDatabaseID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i != -1 {
		ref = ref[:i]
	}
	if i := strings.LastIndex(ref, "/"); i != -1 {
		ref = ref[i+1:]
	}
	matches := databaseIDPattern.FindAllString(ref, -1)
	if len(matches) == 0 {
		return "", ErrInvalidDatabaseID
	}
	// Page slugs put the title first, so the id is the last match.
	id := strings.ReplaceAll(matches[len(matches)-1], "-", "")
	return strings.ToLower(id), nil
}

// DatabaseURL links to a database in the Notion web app.
func DatabaseURL(databaseID string) string {
	return "https://www.notion.so/" + strings.ReplaceAll(databaseID, "-", "")
}
