package filler

import (
	"github.com/lehigh-university-libraries/catscan/internal/form"
	"github.com/lehigh-university-libraries/catscan/internal/models"
)

// Binding maps one form field onto one metadata fact.
type Binding struct {
	Name  string
	Value func(md *models.Metadata) string
}

// Table lists the form fields of one media kind.
type Table struct {
	Title   string
	Excerpt string
	Fields  []Binding

	// Group is the repeating group receiving one row per fill.
	Group     string
	RowTitle  string
	RowFields []Binding

	// SkipWhenNoTitle leaves an already titled form untouched when the
	// record has no title.
	SkipWhenNoTitle bool
}

var bookTable = Table{
	Title:   "title",
	Excerpt: "excerpt",
	Fields: []Binding{
		{"author", func(md *models.Metadata) string { return md.Author }},
		{"editor", func(md *models.Metadata) string { return md.Editor }},
		{"height", func(md *models.Metadata) string { return md.Dimensions.Height }},
	},
	Group:    "volumes",
	RowTitle: "volume_title",
	RowFields: []Binding{
		{"volume_number", func(md *models.Metadata) string { return md.VolumeNumber }},
		{"volume_isbn", func(md *models.Metadata) string { return md.ISBN }},
		{"volume_year", func(md *models.Metadata) string { return md.Year }},
	},
}

var audioTable = Table{
	Title:   "title",
	Excerpt: "excerpt",
	Fields: []Binding{
		{"artist", func(md *models.Metadata) string { return md.Artist }},
		{"number", func(md *models.Metadata) string { return md.IDNumber }},
		{"year", func(md *models.Metadata) string { return md.Year }},
	},
	SkipWhenNoTitle: true,
}

var videoTable = Table{
	Title:   "title",
	Excerpt: "excerpt",
	Fields: []Binding{
		{"author", func(md *models.Metadata) string { return md.Director }},
		{"editor", func(md *models.Metadata) string { return md.Editor }},
		{"number", func(md *models.Metadata) string { return md.IDNumber }},
		{"date", func(md *models.Metadata) string { return md.Year }},
	},
	SkipWhenNoTitle: true,
}

// TableFor returns the field table of category.
func TableFor(category models.Category) (Table, bool) {
	switch category.Kind() {
	case models.KindBook:
		return bookTable, true
	case models.KindAudio:
		return audioTable, true
	case models.KindVideo:
		return videoTable, true
	default:
		return Table{}, false
	}
}

// FieldNames returns every scalar field name of the table, title first.
func (t Table) FieldNames() []string {
	names := []string{t.Title, t.Excerpt}
	for _, b := range t.Fields {
		names = append(names, b.Name)
	}
	return names
}

// RowFieldNames returns the field names of a row of Group.
func (t Table) RowFieldNames() []string {
	if t.Group == "" {
		return nil
	}
	names := []string{t.RowTitle}
	for _, b := range t.RowFields {
		names = append(names, b.Name)
	}
	return names
}

// NewForm creates an empty in-memory form carrying every field of the table
// of category.
func NewForm(category models.Category) (*form.Memory, bool) {
	t, ok := TableFor(category)
	if !ok {
		return nil, false
	}
	m := form.NewMemory(t.FieldNames()...)
	if t.Group != "" {
		m.DefineGroup(t.Group, t.RowFieldNames()...)
	}
	return m, true
}
