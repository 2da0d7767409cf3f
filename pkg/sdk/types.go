package sdk

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is one venue as returned by the API.
type Place struct {
	PlaceID          string          `json:"place_id"`
	Name             string          `json:"restaurant_name"`
	Location         *LatLng         `json:"location,omitempty"`
	PriceLevel       int             `json:"price_level"`
	Rating           float64         `json:"rating"`
	UserRatingsTotal int             `json:"total_user_ratings"`
	Types            []string        `json:"types"`
	Amenities        map[string]bool `json:"amenities,omitempty"`
	EditorialSummary string          `json:"editorial_summary,omitempty"`
	Reviews          []string        `json:"reviews,omitempty"`
	Vicinity         string          `json:"vicinity,omitempty"`
	Website          string          `json:"website,omitempty"`
	PhoneNumber      string          `json:"phone_number,omitempty"`
	BusinessStatus   string          `json:"business_status,omitempty"`
	OpenNow          bool            `json:"open_now,omitempty"`
	Photos           []string        `json:"photos,omitempty"`
}

// SearchPage is one page of candidate venues. A non-empty PageToken can be
// passed back via SearchParams.PageToken for the next page.
type SearchPage struct {
	Places    []Place `json:"places"`
	PageToken string  `json:"page_token,omitempty"`
}

// Recommendation is one ranked venue with its scores.
type Recommendation struct {
	Place
	Cluster            int     `json:"cluster"`
	PositiveSimilarity float64 `json:"positive_similarity"`
	NegativeSimilarity float64 `json:"negative_similarity"`
	FinalScore         float64 `json:"final_score"`
}

// HealthReport is the service health summary.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
