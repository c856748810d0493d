package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gitea.jw6.us/james/notioncal/internal/config"
	"gitea.jw6.us/james/notioncal/internal/feed"
	httperrors "gitea.jw6.us/james/notioncal/internal/http/errors"
	"gitea.jw6.us/james/notioncal/internal/metrics"
	"gitea.jw6.us/james/notioncal/internal/notion"
)

// ErrMissingDatabaseID is reported when neither the request nor the
// configuration names a database.
var ErrMissingDatabaseID = errors.New("missing database id")

// RecordSource fetches the two record sets a feed is built from.
type RecordSource interface {
	DatedRecords(ctx context.Context, databaseID string, since time.Time) ([]feed.Record, error)
	UndatedRecords(ctx context.Context, databaseID string) ([]feed.Record, error)
}

// Handler serves the calendar feed.
type Handler struct {
	cfg    *config.Config
	source RecordSource
	now    func() time.Time
}

// NewHandler returns a Handler reading records from source.
func NewHandler(cfg *config.Config, source RecordSource) *Handler {
	return &Handler{cfg: cfg, source: source, now: time.Now}
}

// Feed renders the configured Notion database as an iCalendar document.
//
// Query parameters:
//   - tz: IANA timezone used to decide "today" (default from config)
//   - db: database id or URL; database_id is accepted as an alias
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	if h.source == nil || h.cfg.Notion.Token == "" {
		httperrors.ConfigError(w, r, "Missing Notion API credentials")
		return
	}

	query := r.URL.Query()

	tzName := strings.TrimSpace(query.Get("tz"))
	if tzName == "" {
		tzName = h.cfg.Feed.DefaultTimezone
	}
	loc, err := feed.LoadTimezone(tzName)
	if err != nil {
		httperrors.BadRequestError(w, r, err, fmt.Sprintf(
			"Invalid timezone %q. Pass an IANA timezone identifier, for example ?tz=America/New_York", tzName))
		return
	}

	databaseID, err := h.databaseID(query.Get("db"), query.Get("database_id"))
	if err != nil {
		httperrors.BadRequestError(w, r, err,
			"Missing or invalid database id. Pass ?db=<Notion database id or URL> or set NOTION_EVENTS_DATABASE_ID")
		return
	}

	opts := h.cfg.FeedOptions().WithDefaults()
	since := h.now().In(loc).AddDate(0, -opts.LookbackMonths, 0)

	dated, err := h.source.DatedRecords(r.Context(), databaseID, since)
	if err != nil {
		httperrors.InternalError(w, r, err, "Error generating calendar feed")
		return
	}
	undated, err := h.source.UndatedRecords(r.Context(), databaseID)
	if err != nil {
		httperrors.InternalError(w, r, err, "Error generating calendar feed")
		return
	}

	records := make([]feed.Record, 0, len(dated)+len(undated))
	records = append(records, dated...)
	records = append(records, undated...)

	res := feed.NewTransformer(opts, loc, h.now).Build(records, notion.DatabaseURL(databaseID))

	metrics.ObserveFeed(len(res.Events), res.Overdue)
	httperrors.LogInfo(r, fmt.Sprintf("feed for %s: %d records, %d events, %d overdue", databaseID, len(records), len(res.Events), res.Overdue))

	w.Header().Set("Content-Type", feed.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+feed.Filename)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := feed.WriteCalendar(w, res.Events); err != nil {
		httperrors.LogError(r, err, "writing calendar feed")
	}
}

func (h *Handler) databaseID(candidates ...string) (string, error) {
	ref := ""
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			ref = c
			break
		}
	}
	if ref == "" {
		ref = strings.TrimSpace(h.cfg.Notion.DatabaseID)
	}
	if ref == "" {
		return "", ErrMissingDatabaseID
	}
	return notion.NormalizeDatabaseID(ref)
}
