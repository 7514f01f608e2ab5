// Package record models a UNIMARC catalog record and the accessors used to
// read facts out of it.
//
// Tags are not unique inside a record: a record may repeat a datafield (for
// example several 700 contributor fields), so accessors come in "first match"
// and "all matches" flavours.
package record

import (
	"regexp"
	"strconv"
	"strings"
)

// CreationDateAttr is the extra-data attribute holding the cataloging date.
const CreationDateAttr = "CreationDate"

// CoverPageTag is the controlfield carrying the catalog page of the record,
// which is where the cover image is scraped from.
const CoverPageTag = "003"

// Subfield is a single-character code and its text.
type Subfield struct {
	Code string
	Text string
}

// Datafield groups subfields under a 3-digit tag.
type Datafield struct {
	Tag       string
	Ind1      string
	Ind2      string
	Subfields []Subfield
}

// Controlfield is a tagged value without subfields.
type Controlfield struct {
	Tag  string
	Text string
}

// Attr is a name/value pair of the extra record data block.
type Attr struct {
	Name string
	Text string
}

// ExtraRecordData holds cataloging metadata attached to the record by the
// SRU server rather than by the cataloger.
type ExtraRecordData struct {
	Attrs []Attr
}

// Record is one parsed catalog record. It is built once per lookup and never
// modified afterwards.
type Record struct {
	Identifier    string
	Leader        string
	Datafields    []Datafield
	Controlfields []Controlfield
	Extra         *ExtraRecordData
}

// TagCode names one subfield location.
type TagCode struct {
	Tag  string
	Code string
}

// PublicationDateSources is the default priority list for the publication
// year: 214$d (production/publication) then 210$d (legacy publication area).
var PublicationDateSources = []TagCode{{"214", "d"}, {"210", "d"}}

// SubfieldText returns the first subfield with code in this datafield.
func (d Datafield) SubfieldText(code string) string {
	for _, sf := range d.Subfields {
		if sf.Code == code {
			return strings.TrimSpace(sf.Text)
		}
	}
	return ""
}

// SubfieldValues returns the non-empty text of every subfield with code, in
// document order.
func (d Datafield) SubfieldValues(code string) []string {
	var values []string
	for _, sf := range d.Subfields {
		if sf.Code != code {
			continue
		}
		if text := strings.TrimSpace(sf.Text); text != "" {
			values = append(values, text)
		}
	}
	return values
}

// HasSubfield reports whether a subfield with code carries exactly value.
func (d Datafield) HasSubfield(code, value string) bool {
	for _, sf := range d.Subfields {
		if sf.Code == code && strings.TrimSpace(sf.Text) == value {
			return true
		}
	}
	return false
}

// Datafield returns the first datafield with tag.
func (r *Record) Datafield(tag string) (Datafield, bool) {
	for _, df := range r.Datafields {
		if df.Tag == tag {
			return df, true
		}
	}
	return Datafield{}, false
}

// SubfieldText returns the first subfield with code inside the first
// datafield with tag, or "" when either level does not match.
func (r *Record) SubfieldText(tag, code string) string {
	df, ok := r.Datafield(tag)
	if !ok {
		return ""
	}
	return df.SubfieldText(code)
}

// SubfieldTextMultiple joins, with sep, the text of every subfield of the
// first datafield with tag whose code is one of codes. Subfields keep their
// document order regardless of the order of codes; empty texts are skipped.
func (r *Record) SubfieldTextMultiple(tag string, codes []string, sep string) string {
	df, ok := r.Datafield(tag)
	if !ok {
		return ""
	}

	wanted := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		wanted[c] = struct{}{}
	}

	var parts []string
	for _, sf := range df.Subfields {
		if _, ok := wanted[sf.Code]; !ok {
			continue
		}
		if text := strings.TrimSpace(sf.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, sep)
}

// FirstSubfieldText tries each location in order and returns the first
// non-empty value.
func (r *Record) FirstSubfieldText(sources ...TagCode) string {
	for _, src := range sources {
		if text := r.SubfieldText(src.Tag, src.Code); text != "" {
			return text
		}
	}
	return ""
}

// AllDatafields returns every datafield with tag in document order.
func (r *Record) AllDatafields(tag string) []Datafield {
	var matches []Datafield
	for _, df := range r.Datafields {
		if df.Tag == tag {
			matches = append(matches, df)
		}
	}
	return matches
}

// ControlfieldText returns the text of the first controlfield with tag.
func (r *Record) ControlfieldText(tag string) string {
	for _, cf := range r.Controlfields {
		if cf.Tag == tag {
			return strings.TrimSpace(cf.Text)
		}
	}
	return ""
}

// ExtraAttr returns every extra-data value named name.
func (r *Record) ExtraAttr(name string) []string {
	if r.Extra == nil {
		return nil
	}
	var values []string
	for _, a := range r.Extra.Attrs {
		if a.Name == name {
			values = append(values, strings.TrimSpace(a.Text))
		}
	}
	return values
}

// CoverPageURL returns the catalog page the cover is scraped from.
func (r *Record) CoverPageURL() string {
	return r.ControlfieldText(CoverPageTag)
}

// CatalogingYear returns the year of the first well-formed CreationDate.
func (r *Record) CatalogingYear() string {
	for _, date := range r.ExtraAttr(CreationDateAttr) {
		if year := ExtractYear(date); year != "" {
			return year
		}
	}
	return ""
}

// PublicationYear applies the publication year chain to this record.
func (r *Record) PublicationYear(sources []TagCode) string {
	return ExtractPublicationYear(r, sources)
}

// Year prefers the default publication date sources and falls back to the
// cataloging date.
func (r *Record) Year() string {
	if year := r.PublicationYear(PublicationDateSources); year != "" {
		return year
	}
	return r.CatalogingYear()
}

// ExtractYear reads the year out of a YYYYMMDD cataloging date. Short or
// malformed input yields "".
func ExtractYear(creationDate string) string {
	creationDate = strings.TrimSpace(creationDate)
	if len(creationDate) < 4 {
		return ""
	}
	year := creationDate[:4]
	n, err := strconv.Atoi(year)
	if err != nil || n < 1000 || n > 9999 {
		return ""
	}
	return year
}

// yearPattern finds a 19xx/20xx year that is not embedded in a longer number.
// Letters may touch the year, so "c1998" and "impr.2024" both match.
var yearPattern = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)[0-9]{2})(?:[^0-9]|$)`)

// ParseYear extracts the first 19xx/20xx year of a free-text date.
func ParseYear(text string) string {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1000 || n > 9999 {
		return ""
	}
	return m[1]
}

// ExtractPublicationYear scans sources in priority order and returns the first
// year found. An earlier source wins even when a later one is better formed.
func ExtractPublicationYear(r *Record, sources []TagCode) string {
	for _, src := range sources {
		text := r.SubfieldText(src.Tag, src.Code)
		if text == "" {
			continue
		}
		if year := ParseYear(text); year != "" {
			return year
		}
	}
	return ""
}
