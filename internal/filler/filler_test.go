package filler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/catscan/internal/extract"
	"github.com/lehigh-university-libraries/catscan/internal/form"
	"github.com/lehigh-university-libraries/catscan/internal/images"
	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/record"
)

type fakeCovers struct {
	calls  []string
	result *images.CoverResult
	err    error
}

func (f *fakeCovers) Resolve(ctx context.Context, pageURL string) (*images.CoverResult, error) {
	f.calls = append(f.calls, pageURL)
	return f.result, f.err
}

func okCovers() *fakeCovers {
	return &fakeCovers{result: &images.CoverResult{UploadID: "abc", Message: images.SuccessMessage}}
}

func bookForm(t *testing.T) *form.Memory {
	t.Helper()
	m, ok := NewForm(models.CategoryBooks)
	require.True(t, ok)
	return m
}

func syntheticBook() *record.Record {
	return &record.Record{
		Datafields: []record.Datafield{
			{Tag: "010", Subfields: []record.Subfield{{Code: "a", Text: "978-2-07-036822-8"}}},
			{Tag: "200", Subfields: []record.Subfield{{Code: "a", Text: "Dune"}}},
			{Tag: "214", Subfields: []record.Subfield{{Code: "d", Text: "impr. 2021"}}},
			{Tag: "700", Subfields: []record.Subfield{{Code: "a", Text: "Herbert"}, {Code: "b", Text: "Frank"}}},
		},
	}
}

func TestFillBookEndToEnd(t *testing.T) {
	md, err := extract.Extract(models.CategoryBooks, syntheticBook())
	require.NoError(t, err)

	sink := bookForm(t)
	msgs, err := New(nil).Fill(context.Background(), models.CategoryBooks, md, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{FilledMessage}, msgs)

	assert.Equal(t, "Dune", sink.Value("title"))
	assert.Equal(t, "Frank Herbert", sink.Value("author"))

	rows := sink.Rows("volumes")
	require.Len(t, rows, 1)
	row := sink.Row("volumes", rows[0])
	assert.Equal(t, "978-2-07-036822-8", row.Value("volume_isbn"))
	assert.Equal(t, "2021", row.Value("volume_year"))
	assert.True(t, row.IsEmpty("volume_title"))
}

func TestFillKeepsPopulatedFields(t *testing.T) {
	sink := bookForm(t)
	sink.Set("author", "Someone Else")

	md := &models.Metadata{Title: "Dune", Author: "Frank Herbert", Editor: "Pocket"}
	_, err := New(nil).Fill(context.Background(), models.CategoryBooks, md, sink)
	require.NoError(t, err)

	assert.Equal(t, "Someone Else", sink.Value("author"))
	assert.Equal(t, "Pocket", sink.Value("editor"))
}

func TestFillWithoutTitleField(t *testing.T) {
	sink := form.NewMemory("author")
	msgs, err := New(okCovers()).Fill(context.Background(), models.CategoryBooks, &models.Metadata{Author: "A"}, sink)
	require.NoError(t, err)
	assert.Nil(t, msgs)
	assert.True(t, sink.IsEmpty("author"))
}

func TestFillUnknownCategory(t *testing.T) {
	_, err := New(nil).Fill(context.Background(), models.Category("vinyls"), &models.Metadata{}, form.NewMemory("title"))
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestFillBookExistingTitle(t *testing.T) {
	sink := bookForm(t)
	sink.Set("title", "One Piece")

	covers := okCovers()
	md := &models.Metadata{
		Title:        "One Piece : Volume 105",
		SeriesTitle:  "One Piece",
		VolumeNumber: "105",
		Cover:        "https://catalogue.bnf.fr/ark:/12148/cb1",
	}
	msgs, err := New(covers).Fill(context.Background(), models.CategoryBooks, md, sink)
	require.NoError(t, err)

	assert.Equal(t, "One Piece", sink.Value("title"), "books keep an existing title")
	assert.Equal(t, []string{FilledMessage}, msgs)
	assert.Empty(t, covers.calls, "no cover when the title was not written")

	rows := sink.Rows("volumes")
	require.Len(t, rows, 1)
	row := sink.Row("volumes", rows[0])
	assert.Equal(t, "One Piece : Volume 105", row.Value("volume_title"))
	assert.Equal(t, "105", row.Value("volume_number"))
}

func TestFillBookVolumeTitleNeedsSeriesMatch(t *testing.T) {
	sink := bookForm(t)
	sink.Set("title", "Something else")

	md := &models.Metadata{Title: "One Piece : Volume 105", SeriesTitle: "One Piece"}
	_, err := New(nil).Fill(context.Background(), models.CategoryBooks, md, sink)
	require.NoError(t, err)

	rows := sink.Rows("volumes")
	require.Len(t, rows, 1)
	assert.True(t, sink.Row("volumes", rows[0]).IsEmpty("volume_title"))
}

func TestFillBookAppendsAfterExistingRows(t *testing.T) {
	sink := form.FromValues(&models.FormValues{
		Fields: map[string]string{"title": ""},
		Groups: map[string][]map[string]string{
			"volumes": {{"volume_number": "1", "volume_year": "1997"}},
		},
	})

	_, err := New(nil).Fill(context.Background(), models.CategoryBooks, &models.Metadata{Title: "T", VolumeNumber: "2", Year: "1998"}, sink)
	require.NoError(t, err)

	rows := sink.Rows("volumes")
	require.Len(t, rows, 2)
	assert.Equal(t, "1", sink.Row("volumes", rows[0]).Value("volume_number"))
	assert.Equal(t, "2", sink.Row("volumes", rows[1]).Value("volume_number"))
	assert.Equal(t, "1998", sink.Row("volumes", rows[1]).Value("volume_year"))
}

// doubleAppend materializes two rows per append so the new row is ambiguous.
type doubleAppend struct {
	*form.Memory
}

func (d doubleAppend) AppendRow(ctx context.Context, group string) error {
	if err := d.Memory.AppendRow(ctx, group); err != nil {
		return err
	}
	return d.Memory.AppendRow(ctx, group)
}

type failingAppend struct {
	*form.Memory
}

func (failingAppend) AppendRow(ctx context.Context, group string) error {
	return errors.New("row template missing")
}

func TestFillAmbiguousRowIsNoop(t *testing.T) {
	sink := doubleAppend{bookForm(t)}
	msgs, err := New(nil).Fill(context.Background(), models.CategoryBooks, &models.Metadata{Title: "T", Year: "2000"}, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{FilledMessage}, msgs)

	for _, id := range sink.Rows("volumes") {
		assert.True(t, sink.Row("volumes", id).IsEmpty("volume_year"))
	}
	assert.Equal(t, "T", sink.Value("title"))
}

func TestFillAppendFailureIsNotFatal(t *testing.T) {
	sink := failingAppend{bookForm(t)}
	msgs, err := New(nil).Fill(context.Background(), models.CategoryBooks, &models.Metadata{Title: "T", Year: "2000"}, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{FilledMessage}, msgs)
	assert.Empty(t, sink.Rows("volumes"))
}

func TestFillCoverCascade(t *testing.T) {
	md := &models.Metadata{Title: "Dune", Cover: "https://catalogue.bnf.fr/ark:/12148/cb1"}

	t.Run("success", func(t *testing.T) {
		covers := okCovers()
		msgs, err := New(covers).Fill(context.Background(), models.CategoryBooks, md, bookForm(t))
		require.NoError(t, err)
		assert.Equal(t, []string{FilledMessage, images.SuccessMessage}, msgs)
		assert.Equal(t, []string{md.Cover}, covers.calls)
	})

	t.Run("not found", func(t *testing.T) {
		covers := &fakeCovers{err: images.ErrCoverNotFound}
		msgs, err := New(covers).Fill(context.Background(), models.CategoryBooks, md, bookForm(t))
		require.NoError(t, err)
		assert.Equal(t, []string{FilledMessage, images.NotFoundMessage}, msgs)
	})

	t.Run("no cover url", func(t *testing.T) {
		covers := okCovers()
		msgs, err := New(covers).Fill(context.Background(), models.CategoryBooks, &models.Metadata{Title: "Dune"}, bookForm(t))
		require.NoError(t, err)
		assert.Equal(t, []string{FilledMessage}, msgs)
		assert.Empty(t, covers.calls)
	})
}

func audioForm(t *testing.T) *form.Memory {
	t.Helper()
	m, ok := NewForm(models.CategoryCDs)
	require.True(t, ok)
	return m
}

func TestFillAudio(t *testing.T) {
	sink := audioForm(t)
	assert.False(t, sink.HasGroup("volumes"))

	md := &models.Metadata{
		Title:    "Random Access Memories",
		Artist:   "Daft Punk",
		IDNumber: "888837168612",
		Year:     "2013",
		Excerpt:  "Tracklist: Give Life Back to Music, The Game of Love",
	}
	msgs, err := New(nil).Fill(context.Background(), models.CategoryCDs, md, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{FilledMessage}, msgs)

	assert.Equal(t, "Daft Punk", sink.Value("artist"))
	assert.Equal(t, "888837168612", sink.Value("number"))
	assert.Equal(t, "2013", sink.Value("year"))
	assert.Equal(t, md.Excerpt, sink.Value("excerpt"))
}

func TestFillAudioShortCircuit(t *testing.T) {
	sink := audioForm(t)
	sink.Set("title", "Existing")

	covers := okCovers()
	msgs, err := New(covers).Fill(context.Background(), models.CategoryCDs, &models.Metadata{Artist: "Daft Punk", Cover: "x"}, sink)
	require.NoError(t, err)
	assert.Nil(t, msgs)
	assert.True(t, sink.IsEmpty("artist"))
	assert.Empty(t, covers.calls)
}

func TestFillVideoOverwritesTitle(t *testing.T) {
	m, ok := NewForm(models.CategoryDVDs)
	require.True(t, ok)
	m.Set("title", "Old title")
	m.Set("editor", "Kept")

	covers := okCovers()
	md := &models.Metadata{
		Title:    "Alien",
		Director: "Ridley Scott",
		Editor:   "Fox",
		IDNumber: "3344428012345",
		Year:     "1979",
		Cover:    "https://catalogue.bnf.fr/ark:/12148/cb2",
	}
	msgs, err := New(covers).Fill(context.Background(), models.CategoryDVDs, md, m)
	require.NoError(t, err)

	assert.Equal(t, "Alien", m.Value("title"))
	assert.Equal(t, "Ridley Scott", m.Value("author"))
	assert.Equal(t, "Kept", m.Value("editor"))
	assert.Equal(t, "3344428012345", m.Value("number"))
	assert.Equal(t, "1979", m.Value("date"))
	assert.Equal(t, []string{FilledMessage}, msgs)
	assert.Empty(t, covers.calls, "no cover when the title was already filled")

	empty, ok := NewForm(models.CategoryDVDs)
	require.True(t, ok)
	msgs, err = New(covers).Fill(context.Background(), models.CategoryDVDs, md, empty)
	require.NoError(t, err)
	assert.Equal(t, []string{FilledMessage, images.SuccessMessage}, msgs)
	assert.Equal(t, []string{md.Cover}, covers.calls)
}

func TestTitlePolicyOverride(t *testing.T) {
	m, ok := NewForm(models.CategoryDVDs)
	require.True(t, ok)
	m.Set("title", "Old title")

	f := New(nil, WithTitlePolicy(models.KindVideo, TitleKeepExisting))
	assert.Equal(t, TitleKeepExisting, f.Policy(models.KindVideo))

	_, err := f.Fill(context.Background(), models.CategoryDVDs, &models.Metadata{Title: "Alien"}, m)
	require.NoError(t, err)
	assert.Equal(t, "Old title", m.Value("title"))
}

func TestParseTitlePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    TitlePolicy
		wantErr bool
	}{
		{"keep", TitleKeepExisting, false},
		{"Overwrite", TitleOverwrite, false},
		{"", TitleKeepExisting, false},
		{"replace", TitleKeepExisting, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTitlePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
