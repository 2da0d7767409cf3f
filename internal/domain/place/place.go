// Package place defines the raw venue record shared between the places
// client, the persistence layer, and the recommendation engine.
package place

// PriceLevelUnknown marks an absent price level on a raw record.
// The feature encoder replaces it with the mid-range default.
const PriceLevelUnknown = -1

// RatingUnknown marks an absent rating on a raw record.
const RatingUnknown = -1

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Record is one venue as returned by the places provider.
//
// Scalar fields use the *Unknown sentinels when the provider omitted them;
// only the feature encoder interprets those sentinels. Location is a pointer
// because a record without coordinates cannot be encoded at all.
type Record struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"restaurant_name"`
	Location         *LatLng `json:"location,omitempty"`
	PriceLevel       int     `json:"price_level"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"total_user_ratings"`

	// Types are the provider's category tags (restaurant, cafe, bar, ...).
	Types []string `json:"types"`

	// Amenities maps amenity flag names (delivery, dine_in, takeout, ...)
	// to their provider-reported value. Missing keys read as false.
	Amenities map[string]bool `json:"amenities,omitempty"`

	EditorialSummary string   `json:"editorial_summary,omitempty"`
	Reviews          []string `json:"reviews,omitempty"`

	// Display-only fields. The feature encoder drops these; the API keeps
	// them on responses so the client can render cards.
	Vicinity       string   `json:"vicinity,omitempty"`
	Website        string   `json:"website,omitempty"`
	PhoneNumber    string   `json:"phone_number,omitempty"`
	BusinessStatus string   `json:"business_status,omitempty"`
	OpenNow        bool     `json:"open_now,omitempty"`
	PhotoRefs      []string `json:"photos,omitempty"`
}

// HasAmenity reports whether the named amenity flag is set.
func (r *Record) HasAmenity(name string) bool {
	return r.Amenities[name]
}

// NearbyHit is one nearby-search entry before details are fetched.
type NearbyHit struct {
	PlaceID  string
	Vicinity string
}
