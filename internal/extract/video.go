package extract

import (
	"strings"

	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/record"
)

// DirectorRole is the $4 relator code of a film director.
const DirectorRole = "300"

// Video extracts films. The excerpt only comes from 330$a: 300$a holds
// bonus features and technical notes in this catalog.
func Video(rec *record.Record) *models.Metadata {
	return &models.Metadata{
		Title:    Title(rec),
		Director: Director(rec),
		Editor:   rec.SubfieldText("210", "c"),
		IDNumber: rec.SubfieldText("073", "a"),
		Excerpt:  rec.SubfieldText("330", "a"),
		Year:     rec.Year(),
		Cover:    rec.CoverPageURL(),
	}
}

// Director returns the first 702 flagged with the director role, else the
// statement of responsibility up to its first comma ("Surname, réal., ...").
func Director(rec *record.Record) string {
	for _, field := range rec.AllDatafields("702") {
		if !field.HasSubfield("4", DirectorRole) {
			continue
		}
		if name := FormatPersonName(field.SubfieldText("b"), field.SubfieldText("a")); name != "" {
			return name
		}
	}

	if statement := rec.SubfieldText("200", "f"); statement != "" {
		name, _, _ := strings.Cut(statement, ",")
		return strings.TrimSpace(name)
	}

	return ""
}
