package extract

import (
	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/record"
)

// Book extracts books, mangas and comics.
func Book(rec *record.Record) *models.Metadata {
	return &models.Metadata{
		Title:  Title(rec),
		Author: Author(rec, true),
		// 461 is the series link, 225 the transcribed series statement
		VolumeNumber: rec.FirstSubfieldText(record.TagCode{Tag: "461", Code: "v"}, record.TagCode{Tag: "225", Code: "v"}),
		SeriesTitle:  rec.FirstSubfieldText(record.TagCode{Tag: "225", Code: "a"}, record.TagCode{Tag: "461", Code: "t"}),
		Editor:       rec.FirstSubfieldText(record.TagCode{Tag: "214", Code: "c"}, record.TagCode{Tag: "210", Code: "c"}),
		Excerpt:      rec.FirstSubfieldText(record.TagCode{Tag: "330", Code: "a"}, record.TagCode{Tag: "830", Code: "a"}),
		Dimensions: models.Dimensions{
			Height: rec.FirstSubfieldText(record.TagCode{Tag: "215", Code: "d"}, record.TagCode{Tag: "280", Code: "d"}),
		},
		ISBN:  rec.SubfieldText("010", "a"),
		Year:  rec.Year(),
		Cover: rec.CoverPageURL(),
	}
}
