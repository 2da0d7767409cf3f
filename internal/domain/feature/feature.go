// Package feature defines the fixed-schema representation the clustering
// and ranking stages operate on: one numeric vector, one categorical
// vector, and one aggregated text string per place.
package feature

// Numeric column indexes, in vector order.
const (
	NumPriceLevel = iota
	NumRating
	NumReviewCount
	NumLat
	NumLng
	NumericWidth
)

// AmenityColumns are the boolean amenity flags encoded for every batch,
// in categorical vector order. Tag one-hot columns follow these.
var AmenityColumns = []string{
	"curbside_pickup",
	"delivery",
	"dine_in",
	"reservable",
	"takeout",
	"serves_breakfast",
	"serves_lunch",
	"serves_dinner",
	"serves_brunch",
	"serves_vegetarian_food",
	"serves_beer",
	"serves_wine",
	"wheelchair_accessible",
}

// Row is one encoded place.
type Row struct {
	PlaceID string `json:"place_id"`

	// Numeric holds price level, rating, review count, lat, lng.
	Numeric []float64 `json:"numeric"`

	// Categorical holds amenity flags followed by tag one-hot columns,
	// each 0 or 1. Its width is uniform across a table.
	Categorical []uint8 `json:"categorical"`

	// Text is the aggregated free text (name, summary, review bodies)
	// with newlines collapsed to spaces. Empty when no text exists.
	Text string `json:"text"`
}

// Table is an encoded batch. TagColumns is the sorted union of category
// tags observed in this batch, so two independently encoded batches may
// carry different column sets and must not be compared to each other.
type Table struct {
	Rows       []Row    `json:"rows"`
	TagColumns []string `json:"tag_columns"`
}

// CategoricalWidth returns the width of every row's categorical vector.
func (t *Table) CategoricalWidth() int {
	return len(AmenityColumns) + len(t.TagColumns)
}

// IDs returns the place ids of all rows in table order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		ids[i] = r.PlaceID
	}
	return ids
}

// SameVector reports whether two rows carry identical feature vectors
// (numeric and categorical; text is not part of the clustering space).
func SameVector(a, b *Row) bool {
	if len(a.Numeric) != len(b.Numeric) || len(a.Categorical) != len(b.Categorical) {
		return false
	}
	for i := range a.Numeric {
		if a.Numeric[i] != b.Numeric[i] {
			return false
		}
	}
	for i := range a.Categorical {
		if a.Categorical[i] != b.Categorical[i] {
			return false
		}
	}
	return true
}
