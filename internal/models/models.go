package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of media categories a form can belong to.
type Category string

const (
	CategoryBooks  Category = "books"
	CategoryMangas Category = "mangas"
	CategoryBDs    Category = "bds"
	CategoryCDs    Category = "cds"
	CategoryDVDs   Category = "dvds"
)

// Kind groups categories that share extraction and fill rules.
type Kind int

const (
	KindUnknown Kind = iota
	KindBook
	KindAudio
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindBook:
		return "book"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Categories returns every supported category.
func Categories() []Category {
	return []Category{CategoryBooks, CategoryMangas, CategoryBDs, CategoryCDs, CategoryDVDs}
}

// Kind returns the variant the category dispatches to.
func (c Category) Kind() Kind {
	switch c {
	case CategoryBooks, CategoryMangas, CategoryBDs:
		return KindBook
	case CategoryCDs:
		return KindAudio
	case CategoryDVDs:
		return KindVideo
	default:
		return KindUnknown
	}
}

// ParseCategory maps a form prefix such as "books" or "cds_fetch" onto a Category.
// The host field names are "<category>_<field>", so anything after the first
// underscore is ignored.
func ParseCategory(s string) (Category, error) {
	name, _, _ := strings.Cut(strings.TrimSpace(strings.ToLower(s)), "_")
	c := Category(name)
	if c.Kind() == KindUnknown {
		return "", fmt.Errorf("unsupported category: %q", s)
	}
	return c, nil
}

// Dimensions holds physical measurements of the item
type Dimensions struct {
	Height string `json:"height,omitempty" yaml:"height,omitempty"`
}

// Metadata is the normalized result of extracting one catalog record.
// An empty string means the fact was absent from the record.
type Metadata struct {
	Category   Category   `json:"category" yaml:"category"`
	Title      string     `json:"title,omitempty" yaml:"title,omitempty"`
	Excerpt    string     `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Year       string     `json:"year,omitempty" yaml:"year,omitempty"`
	Cover      string     `json:"cover,omitempty" yaml:"cover,omitempty"`
	Dimensions Dimensions `json:"dimensions" yaml:"dimensions,omitempty"`

	// Books
	Author       string `json:"author,omitempty" yaml:"author,omitempty"`
	Editor       string `json:"editor,omitempty" yaml:"editor,omitempty"`
	ISBN         string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	VolumeNumber string `json:"volume_number,omitempty" yaml:"volume_number,omitempty"`
	SeriesTitle  string `json:"series_title,omitempty" yaml:"series_title,omitempty"`

	// Audio
	Artist   string   `json:"artist,omitempty" yaml:"artist,omitempty"`
	ISNI     string   `json:"isni,omitempty" yaml:"isni,omitempty"`
	Tracks   []string `json:"tracks,omitempty" yaml:"tracks,omitempty"`
	IDNumber string   `json:"id_number,omitempty" yaml:"id_number,omitempty"`

	// Video
	Director string `json:"director,omitempty" yaml:"director,omitempty"`
}

// Fields returns the populated facts as ordered label/value pairs for display.
func (m *Metadata) Fields() [][2]string {
	all := [][2]string{
		{"title", m.Title},
		{"author", m.Author},
		{"artist", m.Artist},
		{"director", m.Director},
		{"editor", m.Editor},
		{"series_title", m.SeriesTitle},
		{"volume_number", m.VolumeNumber},
		{"isbn", m.ISBN},
		{"id_number", m.IDNumber},
		{"isni", m.ISNI},
		{"year", m.Year},
		{"height", m.Dimensions.Height},
		{"excerpt", m.Excerpt},
		{"cover", m.Cover},
	}
	out := make([][2]string, 0, len(all))
	for _, f := range all {
		if f[1] != "" {
			out = append(out, f)
		}
	}
	return out
}

// FormValues is a snapshot of a form: scalar fields plus repeating groups,
// each row being a map of row field name to value. GroupFields lists the
// fields a new row of a group is created with.
type FormValues struct {
	Fields      map[string]string              `json:"fields" yaml:"fields"`
	Groups      map[string][]map[string]string `json:"groups,omitempty" yaml:"groups,omitempty"`
	GroupFields map[string][]string            `json:"group_fields,omitempty" yaml:"group_fields,omitempty"`
}

// FillSession records one lookup and fill performed through the API
type FillSession struct {
	ID        string      `json:"id"`
	Barcode   string      `json:"barcode"`
	Category  Category    `json:"category"`
	Metadata  *Metadata   `json:"metadata,omitempty"`
	Messages  []string    `json:"messages"`
	Form      *FormValues `json:"form,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
