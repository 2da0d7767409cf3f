// Package sdk provides a Go client for the tablematch restaurant
// recommendation API.
//
// The client keeps the session id from StartSession and sends it with every
// subsequent call:
//
//	client := sdk.New("http://localhost:8080")
//	if _, err := client.StartSession(ctx); err != nil { ... }
//	defer client.EndSession(ctx)
//
//	page, _ := client.Search(ctx, sdk.SearchParams{Address: "Arlington, VA"})
//	_ = client.Like(ctx, page.Places[0].PlaceID)
//	recs, _ := client.Recommendations(ctx, sdk.RecommendParams{})
package sdk
