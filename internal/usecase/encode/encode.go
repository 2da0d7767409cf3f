// Package encode turns raw place records into the fixed-schema feature
// table consumed by clustering and ranking.
package encode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tablematch/tablematch/internal/domain"
	"github.com/tablematch/tablematch/internal/domain/feature"
	"github.com/tablematch/tablematch/internal/domain/place"
)

const (
	defaultPriceLevel = 3
	defaultRating     = 3.0
)

// Batch encodes a batch of place records into a feature table.
//
// The tag column set is the sorted union of category tags observed in this
// batch, so the resulting table is only comparable to itself. Defaults for
// absent scalars are applied here and nowhere else: price level 3, rating
// 3.0. Encoding the same batch twice yields an identical table.
func Batch(records []place.Record) (feature.Table, error) {
	tagCols := collectTags(records)
	tagIndex := make(map[string]int, len(tagCols))
	for i, tag := range tagCols {
		tagIndex[tag] = i
	}

	table := feature.Table{
		Rows:       make([]feature.Row, 0, len(records)),
		TagColumns: tagCols,
	}

	seen := make(map[string]bool, len(records))
	for i := range records {
		rec := &records[i]
		if rec.PlaceID == "" {
			return feature.Table{}, fmt.Errorf("record %d has no place_id: %w", i, domain.ErrEncoding)
		}
		if seen[rec.PlaceID] {
			return feature.Table{}, fmt.Errorf("duplicate place_id %q: %w", rec.PlaceID, domain.ErrEncoding)
		}
		seen[rec.PlaceID] = true

		row, err := encodeRow(rec, tagIndex, len(tagCols))
		if err != nil {
			return feature.Table{}, err
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func encodeRow(rec *place.Record, tagIndex map[string]int, tagWidth int) (feature.Row, error) {
	if rec.Location == nil {
		return feature.Row{}, fmt.Errorf("record %q has no location: %w", rec.PlaceID, domain.ErrEncoding)
	}

	numeric := make([]float64, feature.NumericWidth)
	numeric[feature.NumPriceLevel] = float64(priceLevelOrDefault(rec.PriceLevel))
	numeric[feature.NumRating] = ratingOrDefault(rec.Rating)
	numeric[feature.NumReviewCount] = float64(rec.UserRatingsTotal)
	numeric[feature.NumLat] = rec.Location.Lat
	numeric[feature.NumLng] = rec.Location.Lng

	categorical := make([]uint8, len(feature.AmenityColumns)+tagWidth)
	for i, name := range feature.AmenityColumns {
		if rec.HasAmenity(name) {
			categorical[i] = 1
		}
	}
	for _, tag := range rec.Types {
		if idx, ok := tagIndex[tag]; ok {
			categorical[len(feature.AmenityColumns)+idx] = 1
		}
	}

	return feature.Row{
		PlaceID:     rec.PlaceID,
		Numeric:     numeric,
		Categorical: categorical,
		Text:        AggregateText(rec),
	}, nil
}

// AggregateText joins a record's free-text fragments (name, editorial
// summary, review bodies) into one string with newlines collapsed to
// spaces. Returns "" when the record carries no text.
func AggregateText(rec *place.Record) string {
	parts := make([]string, 0, 2+len(rec.Reviews))
	if rec.Name != "" {
		parts = append(parts, rec.Name)
	}
	if rec.EditorialSummary != "" {
		parts = append(parts, rec.EditorialSummary)
	}
	for _, review := range rec.Reviews {
		if review != "" {
			parts = append(parts, review)
		}
	}
	return normalizeNewlines(strings.Join(parts, " "))
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, `\n`, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func priceLevelOrDefault(level int) int {
	if level < 0 {
		return defaultPriceLevel
	}
	return level
}

func ratingOrDefault(rating float64) float64 {
	if rating < 0 {
		return defaultRating
	}
	return rating
}

// collectTags returns the sorted union of category tags across the batch.
func collectTags(records []place.Record) []string {
	set := make(map[string]bool)
	for i := range records {
		for _, tag := range records[i].Types {
			set[tag] = true
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
