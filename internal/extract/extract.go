// Package extract turns a catalog record into normalized metadata for one
// media category.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/record"
)

// ErrUnknownCategory is returned for categories outside the closed set.
var ErrUnknownCategory = errors.New("unknown category")

var (
	personalNameTags  = []string{"700", "701", "702"}
	corporateNameTags = []string{"710", "711", "712"}
	titleCodes        = []string{"a", "e", "h", "i"}
)

// Extractor derives metadata for one media kind.
type Extractor interface {
	Extract(rec *record.Record) *models.Metadata
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(rec *record.Record) *models.Metadata

func (f ExtractorFunc) Extract(rec *record.Record) *models.Metadata {
	return f(rec)
}

// For returns the extractor of category.
func For(category models.Category) (Extractor, error) {
	switch category.Kind() {
	case models.KindBook:
		return ExtractorFunc(Book), nil
	case models.KindAudio:
		return ExtractorFunc(Audio), nil
	case models.KindVideo:
		return ExtractorFunc(Video), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
}

// Extract runs the extractor of category over rec.
func Extract(category models.Category, rec *record.Record) (*models.Metadata, error) {
	ex, err := For(category)
	if err != nil {
		return nil, err
	}
	md := ex.Extract(rec)
	md.Category = category
	return md, nil
}

// Title composes 200$a $e $h $i with " : ", falling back to 200$a alone.
func Title(rec *record.Record) string {
	if title := rec.SubfieldTextMultiple("200", titleCodes, " : "); title != "" {
		return title
	}
	return rec.SubfieldText("200", "a")
}

// FormatPersonName joins a first name and a surname.
func FormatPersonName(firstName, surname string) string {
	parts := make([]string, 0, 2)
	if firstName != "" {
		parts = append(parts, firstName)
	}
	if surname != "" {
		parts = append(parts, surname)
	}
	return strings.Join(parts, " ")
}

// responsibilityPrefix matches the leading "[illustrations de]", "par" or
// "de" of a statement of responsibility. The words must stand alone so names
// such as "Denis" keep their first letters.
var responsibilityPrefix = regexp.MustCompile(`(?i)^(\[.*?\]|par\b|de\b)\s*`)

// CleanResponsibility strips the common statement-of-responsibility prefixes.
func CleanResponsibility(statement string) string {
	return strings.TrimSpace(responsibilityPrefix.ReplaceAllString(statement, ""))
}

// Author walks personal names (700, 701, 702), then corporate names (710,
// 711, 712), then optionally the cleaned statement of responsibility (200$f).
// The chain order decides, never the position of the fields in the record.
func Author(rec *record.Record, withResponsibility bool) string {
	for _, tag := range personalNameTags {
		for _, field := range rec.AllDatafields(tag) {
			surname := field.SubfieldText("a")
			firstName := field.SubfieldText("b")
			if surname != "" || firstName != "" {
				return FormatPersonName(firstName, surname)
			}
		}
	}

	for _, tag := range corporateNameTags {
		for _, field := range rec.AllDatafields(tag) {
			if name := field.SubfieldText("a"); name != "" {
				return name
			}
		}
	}

	if withResponsibility {
		if statement := rec.SubfieldText("200", "f"); statement != "" {
			return CleanResponsibility(statement)
		}
	}

	return ""
}
