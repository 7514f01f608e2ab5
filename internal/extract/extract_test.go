package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/record"
)

func field(tag string, pairs ...string) record.Datafield {
	d := record.Datafield{Tag: tag}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Subfields = append(d.Subfields, record.Subfield{Code: pairs[i], Text: pairs[i+1]})
	}
	return d
}

func rec(fields ...record.Datafield) *record.Record {
	return &record.Record{Datafields: fields}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		rec  *record.Record
		want string
	}{
		{"all parts", rec(field("200", "a", "Foo", "e", "Bar", "h", "1", "i", "Part One")), "Foo : Bar : 1 : Part One"},
		{"main title only", rec(field("200", "a", "Foo")), "Foo"},
		{"responsibility is not part of the title", rec(field("200", "a", "Foo", "f", "Someone")), "Foo"},
		{"no title", rec(field("210", "a", "Paris")), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.rec))
		})
	}
}

func TestAuthor(t *testing.T) {
	tests := []struct {
		name     string
		rec      *record.Record
		fallback bool
		want     string
	}{
		{
			name: "personal name wins over an earlier corporate name",
			rec: rec(
				field("710", "a", "Studio Ghibli"),
				field("700", "a", "Miyazaki", "b", "Hayao"),
			),
			fallback: true,
			want:     "Hayao Miyazaki",
		},
		{
			name: "700 wins over 701 regardless of position",
			rec: rec(
				field("701", "a", "Second"),
				field("700", "a", "First"),
			),
			want: "First",
		},
		{
			name: "skips personal fields without names",
			rec: rec(
				field("700", "4", "070"),
				field("700", "b", "Jean"),
			),
			want: "Jean",
		},
		{
			name: "corporate names when no person",
			rec: rec(
				field("711", "a", ""),
				field("712", "a", "Orchestre de Paris"),
			),
			want: "Orchestre de Paris",
		},
		{
			name:     "statement of responsibility with prefix",
			rec:      rec(field("200", "a", "T", "f", "par Jean Dupont")),
			fallback: true,
			want:     "Jean Dupont",
		},
		{
			name:     "statement of responsibility with bracket prefix",
			rec:      rec(field("200", "a", "T", "f", "[illustrations de] Moebius")),
			fallback: true,
			want:     "Moebius",
		},
		{
			name:     "names starting with de are kept",
			rec:      rec(field("200", "a", "T", "f", "Denis Diderot")),
			fallback: true,
			want:     "Denis Diderot",
		},
		{
			name:     "fallback disabled",
			rec:      rec(field("200", "a", "T", "f", "par Jean Dupont")),
			fallback: false,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Author(tt.rec, tt.fallback))
		})
	}
}

func TestBook(t *testing.T) {
	r := rec(
		field("010", "a", "978-2-8116-6142-7"),
		field("200", "a", "One piece", "h", "104", "f", "Eiichiro Oda"),
		field("210", "c", "Old publisher", "d", "1999"),
		field("214", "c", "Glénat", "d", "impr. 2024"),
		field("225", "a", "One piece", "v", "104"),
		field("280", "d", "19 cm"),
		field("830", "a", "General note"),
		field("700", "a", "Oda", "b", "Eiichirō"),
	)
	r.Controlfields = []record.Controlfield{{Tag: "003", Text: "https://catalogue.bnf.fr/ark:/12148/cb1"}}

	md := Book(r)
	assert.Equal(t, "One piece : 104", md.Title)
	assert.Equal(t, "Eiichirō Oda", md.Author)
	assert.Equal(t, "Glénat", md.Editor)
	assert.Equal(t, "104", md.VolumeNumber)
	assert.Equal(t, "One piece", md.SeriesTitle)
	assert.Equal(t, "General note", md.Excerpt)
	assert.Equal(t, "19 cm", md.Dimensions.Height)
	assert.Equal(t, "978-2-8116-6142-7", md.ISBN)
	assert.Equal(t, "2024", md.Year)
	assert.Equal(t, "https://catalogue.bnf.fr/ark:/12148/cb1", md.Cover)
}

func TestBookPrefersPrimarySources(t *testing.T) {
	md := Book(rec(
		field("461", "t", "Series link", "v", "7"),
		field("225", "a", "Series statement", "v", "8"),
		field("215", "d", "21 cm"),
		field("280", "d", "19 cm"),
		field("330", "a", "Summary"),
		field("830", "a", "Note"),
	))

	assert.Equal(t, "7", md.VolumeNumber)
	assert.Equal(t, "Series statement", md.SeriesTitle)
	assert.Equal(t, "21 cm", md.Dimensions.Height)
	assert.Equal(t, "Summary", md.Excerpt)
	assert.Empty(t, md.Year)
	assert.Empty(t, md.Cover)
}

func TestBookYearFallsBackToCatalogingDate(t *testing.T) {
	r := rec(field("200", "a", "Foo"))
	r.Extra = &record.ExtraRecordData{Attrs: []record.Attr{{Name: record.CreationDateAttr, Text: "20230615"}}}

	assert.Equal(t, "2023", Book(r).Year)
}

func TestAudio(t *testing.T) {
	r := rec(
		field("071", "a", "0724387383814"),
		field("200", "a", "Album", "f", "The Band"),
		field("215", "d", "12 cm"),
		field("464", "t", "Intro", "t", ""),
		field("464", "t", "Song"),
		field("700", "o", "ISNI0000000001"),
		field("710", "a", "The Band", "o", "ISNI0000000002"),
		field("464", "t", "Outro"),
	)

	md := Audio(r)
	assert.Equal(t, "Album", md.Title)
	assert.Equal(t, "The Band", md.Artist)
	assert.Equal(t, "0724387383814", md.IDNumber)
	assert.Equal(t, "ISNI0000000002", md.ISNI)
	assert.Equal(t, "12 cm", md.Dimensions.Height)
	assert.Equal(t, []string{"Intro", "Song", "Outro"}, md.Tracks)
	assert.Equal(t, "Tracklist: Intro, Song, Outro", md.Excerpt)
}

func TestAudioArtistFallback(t *testing.T) {
	md := Audio(rec(field("200", "a", "Album", "f", "par Quelqu'un")))

	// the raw statement is used, without prefix stripping
	assert.Equal(t, "par Quelqu'un", md.Artist)
	assert.Empty(t, md.Excerpt)
	assert.Nil(t, md.Tracks)
}

func TestVideo(t *testing.T) {
	tests := []struct {
		name string
		rec  *record.Record
		want string
	}{
		{
			name: "role tagged contributor",
			rec: rec(
				field("200", "a", "Film", "f", "Someone else, réal."),
				field("702", "a", "Composer", "4", "230"),
				field("702", "a", "Kurosawa", "b", "Akira", "4", "300"),
			),
			want: "Akira Kurosawa",
		},
		{
			name: "statement before the first comma",
			rec:  rec(field("200", "a", "Film", "f", "Hayao Miyazaki, réal., scénario")),
			want: "Hayao Miyazaki",
		},
		{
			name: "no director",
			rec:  rec(field("200", "a", "Film")),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Director(tt.rec))
		})
	}
}

func TestVideoFields(t *testing.T) {
	md := Video(rec(
		field("073", "a", "3700301021182"),
		field("071", "a", "not-used"),
		field("200", "a", "Film", "e", "Director's cut"),
		field("210", "c", "Studio", "d", "P 2008"),
		field("300", "a", "Bonus: making of"),
		field("330", "a", "A summary"),
	))

	assert.Equal(t, "Film : Director's cut", md.Title)
	assert.Equal(t, "Studio", md.Editor)
	assert.Equal(t, "3700301021182", md.IDNumber)
	assert.Equal(t, "A summary", md.Excerpt)
	assert.Equal(t, "2008", md.Year)
}

func TestVideoExcerptNeverUsesNotes(t *testing.T) {
	md := Video(rec(field("200", "a", "Film"), field("300", "a", "Bonus: making of")))
	assert.Empty(t, md.Excerpt)
}

func TestExtractDispatch(t *testing.T) {
	r := rec(field("200", "a", "Foo"), field("071", "a", "123"), field("073", "a", "456"))

	for _, c := range []models.Category{models.CategoryBooks, models.CategoryMangas, models.CategoryBDs} {
		md, err := Extract(c, r)
		require.NoError(t, err)
		assert.Equal(t, c, md.Category)
		assert.Empty(t, md.IDNumber)
	}

	md, err := Extract(models.CategoryCDs, r)
	require.NoError(t, err)
	assert.Equal(t, "123", md.IDNumber)

	md, err = Extract(models.CategoryDVDs, r)
	require.NoError(t, err)
	assert.Equal(t, "456", md.IDNumber)

	_, err = Extract(models.Category("vinyls"), r)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
