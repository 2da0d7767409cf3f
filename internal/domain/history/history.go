// Package history holds a user's like/dislike judgments.
package history

// History is one user's liked and disliked place-id sets. It is passed
// into the engine by value per request; the persistence layer owns it.
type History struct {
	Liked    map[string]bool
	Disliked map[string]bool
}

// New creates an empty history.
func New() History {
	return History{
		Liked:    make(map[string]bool),
		Disliked: make(map[string]bool),
	}
}

// FromSets builds a history from id slices.
func FromSets(liked, disliked []string) History {
	h := New()
	for _, id := range liked {
		h.Liked[id] = true
	}
	for _, id := range disliked {
		h.Disliked[id] = true
	}
	return h
}

// Judged reports whether the user has already liked or disliked the place.
func (h History) Judged(placeID string) bool {
	return h.Liked[placeID] || h.Disliked[placeID]
}

// Empty reports whether the user has no judgments at all.
func (h History) Empty() bool {
	return len(h.Liked) == 0 && len(h.Disliked) == 0
}
