// Package filler writes extracted metadata into a form.
package filler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/catscan/internal/form"
	"github.com/lehigh-university-libraries/catscan/internal/images"
	"github.com/lehigh-university-libraries/catscan/internal/models"
)

// FilledMessage is the first line of every successful fill.
const FilledMessage = "Data filled successfully"

// ErrUnknownCategory is returned for categories with no field table.
var ErrUnknownCategory = errors.New("no field table for category")

// TitlePolicy decides what happens to a form title that is already set.
type TitlePolicy int

const (
	// TitleKeepExisting only writes the title into an empty field.
	TitleKeepExisting TitlePolicy = iota
	// TitleOverwrite replaces the title whenever one was fetched.
	TitleOverwrite
)

func (p TitlePolicy) String() string {
	if p == TitleOverwrite {
		return "overwrite"
	}
	return "keep"
}

// ParseTitlePolicy accepts "keep" or "overwrite".
func ParseTitlePolicy(s string) (TitlePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep", "keep-existing", "":
		return TitleKeepExisting, nil
	case "overwrite":
		return TitleOverwrite, nil
	default:
		return TitleKeepExisting, fmt.Errorf("unknown title policy %q", s)
	}
}

// CoverResolver fetches and stores the cover found on a catalog page.
type CoverResolver interface {
	Resolve(ctx context.Context, pageURL string) (*images.CoverResult, error)
}

// Option configures a Filler.
type Option func(*Filler)

// WithTitlePolicy sets the title policy of one media kind.
func WithTitlePolicy(kind models.Kind, policy TitlePolicy) Option {
	return func(f *Filler) {
		f.policies[kind] = policy
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		f.logger = logger
	}
}

// Filler maps metadata onto a form. It holds no per-fill state.
type Filler struct {
	covers   CoverResolver
	policies map[models.Kind]TitlePolicy
	logger   *slog.Logger
}

// New creates a filler. covers may be nil, in which case covers are never
// fetched.
func New(covers CoverResolver, opts ...Option) *Filler {
	f := &Filler{
		covers: covers,
		policies: map[models.Kind]TitlePolicy{
			models.KindBook:  TitleKeepExisting,
			models.KindAudio: TitleOverwrite,
			models.KindVideo: TitleOverwrite,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the title policy applied to kind.
func (f *Filler) Policy(kind models.Kind) TitlePolicy {
	return f.policies[kind]
}

// Fill writes md into sink using the field table of category. It returns nil
// messages when the form has no title field, or when the table skips forms
// that already carry a title and nothing new was fetched.
func (f *Filler) Fill(ctx context.Context, category models.Category, md *models.Metadata, sink form.Sink) ([]string, error) {
	t, ok := TableFor(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if md == nil {
		md = &models.Metadata{}
	}

	if !sink.Exists(t.Title) {
		f.logger.Debug("Form has no title field", "category", category)
		return nil, nil
	}

	hadTitle := !sink.IsEmpty(t.Title)
	if t.SkipWhenNoTitle && hadTitle && md.Title == "" {
		f.logger.Info("Form already titled and no title fetched", "category", category)
		return nil, nil
	}
	existingTitle := sink.Value(t.Title)

	titleWritten := f.writeTitle(sink, t.Title, md.Title, hadTitle, f.policies[category.Kind()])

	setIfEmpty(sink, t.Excerpt, md.Excerpt)
	for _, b := range t.Fields {
		setIfEmpty(sink, b.Name, b.Value(md))
	}

	if t.Group != "" && sink.HasGroup(t.Group) {
		f.fillRow(ctx, sink, t, md, hadTitle, existingTitle)
	}

	messages := []string{FilledMessage}
	// an overwritten title keeps the cover already attached to the form
	if md.Cover != "" && titleWritten && !hadTitle && f.covers != nil {
		result, err := f.covers.Resolve(ctx, md.Cover)
		if err != nil {
			f.logger.Warn("Error fetching cover", "cover", md.Cover, "error", err)
		}
		messages = append(messages, images.Message(result, err))
	}

	return messages, nil
}

func (f *Filler) writeTitle(sink form.FieldSet, name, title string, hadTitle bool, policy TitlePolicy) bool {
	if title == "" {
		return false
	}
	if hadTitle && policy == TitleKeepExisting {
		return false
	}
	sink.Set(name, title)
	return true
}

// fillRow appends one row to the group and fills the row that appeared. When
// zero or several rows appeared the row cannot be identified and nothing is
// written.
func (f *Filler) fillRow(ctx context.Context, sink form.Sink, t Table, md *models.Metadata, hadTitle bool, existingTitle string) {
	before := make(map[string]struct{})
	for _, id := range sink.Rows(t.Group) {
		before[id] = struct{}{}
	}

	if err := sink.AppendRow(ctx, t.Group); err != nil {
		f.logger.Warn("Failed to append row", "group", t.Group, "error", err)
		return
	}

	var added []string
	for _, id := range sink.Rows(t.Group) {
		if _, ok := before[id]; !ok {
			added = append(added, id)
		}
	}
	if len(added) != 1 {
		f.logger.Debug("Could not identify new row", "group", t.Group, "new_rows", len(added))
		return
	}

	row := sink.Row(t.Group, added[0])
	if row == nil {
		return
	}

	if t.RowTitle != "" && hadTitle && md.Title != "" && md.SeriesTitle != "" &&
		strings.TrimSpace(existingTitle) == strings.TrimSpace(md.SeriesTitle) {
		setIfEmpty(row, t.RowTitle, md.Title)
	}
	for _, b := range t.RowFields {
		setIfEmpty(row, b.Name, b.Value(md))
	}
}

func setIfEmpty(fs form.FieldSet, name, value string) {
	if name == "" || value == "" {
		return
	}
	if fs.Exists(name) && fs.IsEmpty(name) {
		fs.Set(name, value)
	}
}
