package analyzer

import (
	"strings"
	"time"

	"levelhub/pkg/models"
)

// ScoreWeights is the metadata-completeness weight table used to pick
// the best member of a duplicate group. It is deliberately explicit and
// swappable rather than a set of buried constants; the merger consumes
// the same source priorities so recommendation and merge agree.
type ScoreWeights struct {
	Title            float64
	Author           float64
	Description      float64
	LongDescription  float64 // extra when the description is substantial
	LongDescChars    int
	PerTag           float64
	TagCap           float64
	PostedDate       float64
	Objectives       float64
	Requirements     float64
	SourceBonus      map[models.LevelSource]float64
}

// DefaultScoreWeights favors curated metadata: the archive's cleaned-up
// records outrank raw chat posts, with the curated chat channel in
// between.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Title:           2.0,
		Author:          2.0,
		Description:     1.5,
		LongDescription: 0.5,
		LongDescChars:   120,
		PerTag:          0.25,
		TagCap:          1.0,
		PostedDate:      1.0,
		Objectives:      0.5,
		Requirements:    0.5,
		SourceBonus: map[models.LevelSource]float64{
			models.SourceArchive:            1.0,
			models.SourceChatArchiveChannel: 0.5,
		},
	}
}

// Score rates one group member's metadata completeness. Placeholder
// titles/authors score nothing.
func (w ScoreWeights) Score(m models.LevelMetadata) float64 {
	var score float64

	if title := strings.TrimSpace(m.Title); title != "" && !strings.EqualFold(title, "untitled") {
		score += w.Title
	}
	if author := strings.TrimSpace(m.Author); author != "" && author != models.UnknownAuthor {
		score += w.Author
	}
	if desc := strings.TrimSpace(m.Description); desc != "" {
		score += w.Description
		if len(desc) >= w.LongDescChars {
			score += w.LongDescription
		}
	}
	if tagScore := float64(len(m.Tags)) * w.PerTag; tagScore > 0 {
		if tagScore > w.TagCap {
			tagScore = w.TagCap
		}
		score += tagScore
	}
	if m.PostedDate != nil && !m.PostedDate.IsZero() {
		score += w.PostedDate
	}
	if strings.TrimSpace(m.Objectives) != "" {
		score += w.Objectives
	}
	if strings.TrimSpace(m.Requirements) != "" {
		score += w.Requirements
	}
	score += w.SourceBonus[m.Source]

	return score
}

// earlier reports whether a sorts strictly before b with nil dates
// sorting last.
func earlier(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Before(*b)
}
