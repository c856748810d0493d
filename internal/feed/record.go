package feed

// Property types understood by the transformer.
const (
	PropertyTitle    = "title"
	PropertyRichText = "rich_text"
	PropertyDate     = "date"
	PropertyCheckbox = "checkbox"
	PropertyURL      = "url"
)

// Property is one typed value of a record. Only the field matching Type is
// meaningful.
type Property struct {
	Type     string
	Text     string
	Date     *DateRange
	Checkbox bool
	URL      string
}

// Record is a validated external record.
type Record struct {
	ID         string
	URL        string
	Properties map[string]Property
}

// Text returns the plain text of a title, rich text or url property.
func (r Record) Text(name string) string {
	p, ok := r.Properties[name]
	if !ok {
		return ""
	}
	switch p.Type {
	case PropertyTitle, PropertyRichText:
		return p.Text
	case PropertyURL:
		return p.URL
	}
	return ""
}

// Date returns the date range of a date property, or nil when the property
// is missing, not a date, or empty.
func (r Record) Date(name string) *DateRange {
	p, ok := r.Properties[name]
	if !ok || p.Type != PropertyDate || !p.Date.HasStart() {
		return nil
	}
	return p.Date
}

// Checked returns the value of a checkbox property; missing means false.
func (r Record) Checked(name string) bool {
	p, ok := r.Properties[name]
	return ok && p.Type == PropertyCheckbox && p.Checkbox
}

// Options names the record properties read by the transformer.
type Options struct {
	DateProperty  string
	DoneProperty  string
	TitleProperty string
	UntitledTitle string
	// LookbackMonths bounds how old a dated record may be. It is applied when
	// building the upstream filter, not by the transformer.
	LookbackMonths int
}

// DefaultOptions returns the property names used by a stock events database.
func DefaultOptions() Options {
	return Options{
		DateProperty:   "Date",
		DoneProperty:   "Done",
		TitleProperty:  "Name",
		UntitledTitle:  "Untitled Event",
		LookbackMonths: 18,
	}
}

// WithDefaults fills unset fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.DateProperty == "" {
		o.DateProperty = def.DateProperty
	}
	if o.DoneProperty == "" {
		o.DoneProperty = def.DoneProperty
	}
	if o.TitleProperty == "" {
		o.TitleProperty = def.TitleProperty
	}
	if o.UntitledTitle == "" {
		o.UntitledTitle = def.UntitledTitle
	}
	if o.LookbackMonths <= 0 {
		o.LookbackMonths = def.LookbackMonths
	}
	return o
}

// Event is a calendar entry ready for serialization.
type Event struct {
	UID         string
	Title       string
	Start       string
	End         string
	AllDay      bool
	Done        bool
	Description string
}
