package googleplaces

import (
	"github.com/tablematch/tablematch/internal/domain/place"
)

// detailsResult mirrors the Place Details response body. Optional scalars
// are pointers so absence maps to the domain sentinels, not zero values.
type detailsResult struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name"`

	Geometry *struct {
		Location place.LatLng `json:"location"`
	} `json:"geometry"`

	PriceLevel       *int     `json:"price_level"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Types            []string `json:"types"`

	Vicinity             string `json:"vicinity"`
	Website              string `json:"website"`
	FormattedPhoneNumber string `json:"formatted_phone_number"`
	BusinessStatus       string `json:"business_status"`

	OpeningHours *struct {
		OpenNow bool `json:"open_now"`
	} `json:"opening_hours"`

	EditorialSummary *struct {
		Overview string `json:"overview"`
	} `json:"editorial_summary"`

	Reviews []struct {
		Text string `json:"text"`
	} `json:"reviews"`

	Photos []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`

	CurbsidePickup               *bool `json:"curbside_pickup"`
	Delivery                     *bool `json:"delivery"`
	DineIn                       *bool `json:"dine_in"`
	Reservable                   *bool `json:"reservable"`
	Takeout                      *bool `json:"takeout"`
	ServesBreakfast              *bool `json:"serves_breakfast"`
	ServesLunch                  *bool `json:"serves_lunch"`
	ServesDinner                 *bool `json:"serves_dinner"`
	ServesBrunch                 *bool `json:"serves_brunch"`
	ServesVegetarianFood         *bool `json:"serves_vegetarian_food"`
	ServesBeer                   *bool `json:"serves_beer"`
	ServesWine                   *bool `json:"serves_wine"`
	WheelchairAccessibleEntrance *bool `json:"wheelchair_accessible_entrance"`
}

// toRecord converts the raw details payload to a domain record.
// requestedID backs up the place_id field, which the API omits unless asked.
func (d *detailsResult) toRecord(requestedID string) place.Record {
	rec := place.Record{
		PlaceID:          d.PlaceID,
		Name:             d.Name,
		PriceLevel:       place.PriceLevelUnknown,
		Rating:           place.RatingUnknown,
		UserRatingsTotal: d.UserRatingsTotal,
		Types:            d.Types,
		Vicinity:         d.Vicinity,
		Website:          d.Website,
		PhoneNumber:      d.FormattedPhoneNumber,
		BusinessStatus:   d.BusinessStatus,
	}
	if rec.PlaceID == "" {
		rec.PlaceID = requestedID
	}
	if d.Geometry != nil {
		loc := d.Geometry.Location
		rec.Location = &loc
	}
	if d.PriceLevel != nil {
		rec.PriceLevel = *d.PriceLevel
	}
	if d.Rating != nil {
		rec.Rating = *d.Rating
	}
	if d.OpeningHours != nil {
		rec.OpenNow = d.OpeningHours.OpenNow
	}
	if d.EditorialSummary != nil {
		rec.EditorialSummary = d.EditorialSummary.Overview
	}
	for _, r := range d.Reviews {
		if r.Text != "" {
			rec.Reviews = append(rec.Reviews, r.Text)
		}
	}
	for _, p := range d.Photos {
		if p.PhotoReference != "" {
			rec.PhotoRefs = append(rec.PhotoRefs, p.PhotoReference)
		}
	}

	rec.Amenities = amenityMap(map[string]*bool{
		"curbside_pickup":        d.CurbsidePickup,
		"delivery":               d.Delivery,
		"dine_in":                d.DineIn,
		"reservable":             d.Reservable,
		"takeout":                d.Takeout,
		"serves_breakfast":       d.ServesBreakfast,
		"serves_lunch":           d.ServesLunch,
		"serves_dinner":          d.ServesDinner,
		"serves_brunch":          d.ServesBrunch,
		"serves_vegetarian_food": d.ServesVegetarianFood,
		"serves_beer":            d.ServesBeer,
		"serves_wine":            d.ServesWine,
		"wheelchair_accessible":  d.WheelchairAccessibleEntrance,
	})

	return rec
}

// amenityMap keeps only flags the provider actually reported true.
func amenityMap(flags map[string]*bool) map[string]bool {
	var out map[string]bool
	for name, v := range flags {
		if v != nil && *v {
			if out == nil {
				out = make(map[string]bool)
			}
			out[name] = true
		}
	}
	return out
}
