// Package places pulls facility ratings from the Google Places API and
// refreshes them on a schedule.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place/details/json"

// Rating is the external rating snapshot for one place.
type Rating struct {
	Rating float64
	Count  int
}

// Client calls the Place Details endpoint. Requests are bounded by the
// embedded HTTP client's timeout on top of the caller's context.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchRating returns the current rating and review count for a place id.
func (c *Client) FetchRating(ctx context.Context, placeID string) (*Rating, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "rating,user_ratings_total")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("place details request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("place details: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Result struct {
			Rating           float64 `json:"rating"`
			UserRatingsTotal int     `json:"user_ratings_total"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode place details: %w", err)
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("place details: status %s", body.Status)
	}
	return &Rating{Rating: body.Result.Rating, Count: body.Result.UserRatingsTotal}, nil
}
