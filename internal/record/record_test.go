package record

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func df(tag string, pairs ...string) Datafield {
	d := Datafield{Tag: tag}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Subfields = append(d.Subfields, Subfield{Code: pairs[i], Text: pairs[i+1]})
	}
	return d
}

func TestSubfieldText(t *testing.T) {
	rec := &Record{Datafields: []Datafield{
		df("200", "a", "  Foo  ", "f", "Somebody"),
		df("700", "a", "First"),
		df("700", "a", "Second", "o", "0000000123"),
	}}

	tests := []struct {
		name string
		tag  string
		code string
		want string
	}{
		{"match is trimmed", "200", "a", "Foo"},
		{"absent tag", "999", "a", ""},
		{"absent code in matching tag", "200", "z", ""},
		{"code is case sensitive", "200", "A", ""},
		{"only the first datafield with the tag is read", "700", "o", ""},
		{"first of repeated tags", "700", "a", "First"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rec.SubfieldText(tt.tag, tt.code))
		})
	}

	t.Run("empty record", func(t *testing.T) {
		assert.Equal(t, "", (&Record{}).SubfieldText("200", "a"))
	})
}

func TestSubfieldTextMultiple(t *testing.T) {
	tests := []struct {
		name  string
		rec   *Record
		codes []string
		want  string
	}{
		{
			name:  "all title parts",
			rec:   &Record{Datafields: []Datafield{df("200", "a", "Foo", "e", "Bar", "h", "1", "i", "Part One")}},
			codes: []string{"a", "e", "h", "i"},
			want:  "Foo : Bar : 1 : Part One",
		},
		{
			name:  "document order wins over requested order",
			rec:   &Record{Datafields: []Datafield{df("200", "a", "Foo", "e", "Bar")}},
			codes: []string{"e", "a"},
			want:  "Foo : Bar",
		},
		{
			name:  "empty texts are skipped",
			rec:   &Record{Datafields: []Datafield{df("200", "a", "Foo", "e", "  ", "f", "ignored")}},
			codes: []string{"a", "e"},
			want:  "Foo",
		},
		{
			name:  "no matching datafield",
			rec:   &Record{Datafields: []Datafield{df("210", "a", "Paris")}},
			codes: []string{"a"},
			want:  "",
		},
		{
			name:  "no matching subfield",
			rec:   &Record{Datafields: []Datafield{df("200", "f", "Somebody")}},
			codes: []string{"a", "e"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.SubfieldTextMultiple("200", tt.codes, " : "))
		})
	}
}

func TestAllDatafieldsKeepsDocumentOrder(t *testing.T) {
	rec := &Record{Datafields: []Datafield{
		df("464", "t", "One"),
		df("200", "a", "Album"),
		df("464", "t", "Two"),
		df("464", "t", "Three"),
	}}

	fields := rec.AllDatafields("464")
	require.Len(t, fields, 3)
	assert.Equal(t, "One", fields[0].SubfieldText("t"))
	assert.Equal(t, "Two", fields[1].SubfieldText("t"))
	assert.Equal(t, "Three", fields[2].SubfieldText("t"))
	assert.Empty(t, rec.AllDatafields("999"))
}

func TestControlfieldText(t *testing.T) {
	rec := &Record{Controlfields: []Controlfield{
		{Tag: "001", Text: "FRBNF1"},
		{Tag: "003", Text: " https://catalogue.bnf.fr/ark:/12148/cb1 "},
		{Tag: "003", Text: "second"},
	}}

	assert.Equal(t, "https://catalogue.bnf.fr/ark:/12148/cb1", rec.ControlfieldText("003"))
	assert.Equal(t, "https://catalogue.bnf.fr/ark:/12148/cb1", rec.CoverPageURL())
	assert.Equal(t, "", rec.ControlfieldText("005"))
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"20230615", "2023"},
		{"12", ""},
		{"", ""},
		{"0999-01-01", ""},
		{"20a30615", ""},
		{"1850", "1850"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractYear(tt.input))
		})
	}
}

func TestExtractPublicationYear(t *testing.T) {
	tests := []struct {
		name string
		rec  *Record
		want string
	}{
		{"printing prefix", &Record{Datafields: []Datafield{df("214", "d", "impr. 2024")}}, "2024"},
		{"copyright prefix", &Record{Datafields: []Datafield{df("214", "d", "c1998")}}, "1998"},
		{"no year", &Record{Datafields: []Datafield{df("214", "d", "unknown")}}, ""},
		{"falls through to 210", &Record{Datafields: []Datafield{df("210", "d", "DL 2011")}}, "2011"},
		{"earlier candidate wins", &Record{Datafields: []Datafield{
			df("210", "d", "2001"),
			df("214", "d", "[ca 1999]"),
		}}, "1999"},
		{"unparsable first candidate falls through", &Record{Datafields: []Datafield{
			df("214", "d", "s.d."),
			df("210", "d", "2005"),
		}}, "2005"},
		{"years outside 19xx and 20xx are ignored", &Record{Datafields: []Datafield{df("214", "d", "1850")}}, ""},
		{"longer numbers are not years", &Record{Datafields: []Datafield{df("214", "d", "120245")}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPublicationYear(tt.rec, PublicationDateSources))
		})
	}
}

func TestYearFallsBackToCatalogingDate(t *testing.T) {
	rec := &Record{Extra: &ExtraRecordData{Attrs: []Attr{
		{Name: "LastModificationDate", Text: "20240101"},
		{Name: CreationDateAttr, Text: "bad"},
		{Name: CreationDateAttr, Text: "20190301"},
	}}}
	assert.Equal(t, "2019", rec.Year())

	rec.Datafields = []Datafield{df("214", "d", "2021")}
	assert.Equal(t, "2021", rec.Year())

	assert.Equal(t, "", (&Record{}).Year())
}

func TestParse(t *testing.T) {
	f, err := os.Open("testdata/sru_book.xml")
	require.NoError(t, err)
	defer f.Close()

	resp, err := Parse(f)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.NumberOfRecords)

	rec, err := resp.First()
	require.NoError(t, err)

	assert.Equal(t, "ark:/12148/cb46838232d", rec.Identifier)
	assert.Equal(t, "One piece : 104 : Le dieu du soleil", rec.SubfieldTextMultiple("200", []string{"a", "e", "h", "i"}, " : "))
	assert.Equal(t, "978-2-8116-6142-7", rec.SubfieldText("010", "a"))
	assert.Equal(t, "Glénat", rec.SubfieldText("214", "c"))
	assert.Equal(t, "https://catalogue.bnf.fr/ark:/12148/cb46838232d", rec.CoverPageURL())
	assert.Equal(t, "2024", rec.Year())
	assert.Equal(t, "2023", rec.CatalogingYear())

	fields := rec.AllDatafields("702")
	require.Len(t, fields, 1)
	assert.Equal(t, "|", fields[0].Ind2)
	assert.True(t, fields[0].HasSubfield("4", "730"))
}

func TestParseWithoutRecords(t *testing.T) {
	f, err := os.Open("testdata/sru_empty.xml")
	require.NoError(t, err)
	defer f.Close()

	_, err = ParseFirst(f)
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader("<html><body>oops</body></html>"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader(""))
	assert.Error(t, err)
}
