package extract

import (
	"strings"

	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/record"
)

// TracklistPrefix introduces the track titles in an audio excerpt.
const TracklistPrefix = "Tracklist:"

// Audio extracts sound recordings.
func Audio(rec *record.Record) *models.Metadata {
	artist := Author(rec, false)
	if artist == "" {
		artist = rec.SubfieldText("200", "f")
	}

	tracks := Tracks(rec)
	excerpt := ""
	if len(tracks) > 0 {
		excerpt = TracklistPrefix + " " + strings.Join(tracks, ", ")
	}

	return &models.Metadata{
		Title:    Title(rec),
		Artist:   artist,
		IDNumber: rec.SubfieldText("071", "a"),
		ISNI:     rec.FirstSubfieldText(record.TagCode{Tag: "710", Code: "o"}, record.TagCode{Tag: "700", Code: "o"}),
		Dimensions: models.Dimensions{
			Height: rec.SubfieldText("215", "d"),
		},
		Tracks:  tracks,
		Excerpt: excerpt,
		Year:    rec.Year(),
		Cover:   rec.CoverPageURL(),
	}
}

// Tracks collects 464$t across every 464 analytic entry.
func Tracks(rec *record.Record) []string {
	var tracks []string
	for _, field := range rec.AllDatafields("464") {
		tracks = append(tracks, field.SubfieldValues("t")...)
	}
	return tracks
}
