package places

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tablematch/tablematch/internal/domain"
)

// continuation is everything needed to resume a search from a token alone.
// The provider's own page token is position-bound, so the original location
// and radius travel with it.
type continuation struct {
	ProviderToken string  `json:"pt"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Radius        int     `json:"r"`
	Keyword       string  `json:"kw,omitempty"`
}

func encodeToken(c continuation) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

func decodeToken(token string) (continuation, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return continuation{}, fmt.Errorf("%w: %v", domain.ErrInvalidPageToken, err)
	}
	var c continuation
	if err := json.Unmarshal(data, &c); err != nil {
		return continuation{}, fmt.Errorf("%w: %v", domain.ErrInvalidPageToken, err)
	}
	if c.ProviderToken == "" {
		return continuation{}, fmt.Errorf("%w: missing provider token", domain.ErrInvalidPageToken)
	}
	return c, nil
}
