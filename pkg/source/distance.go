package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"
)

const metersPerMile = 1609.344

// ErrNoAPIKey means distance lookups are not configured.
var ErrNoAPIKey = errors.New("maps api key not set")

// DistanceClient looks up driving distance through the Google Distance
// Matrix API.
type DistanceClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewDistanceClient creates a client. An empty baseURL uses Google's endpoint.
func NewDistanceClient(apiKey, baseURL string) *DistanceClient {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"
	}
	return &DistanceClient{
		client:  &http.Client{Timeout: 15 * time.Second},
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

type distanceMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Text  string  `json:"text"`
				Value float64 `json:"value"`
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
}

// Miles returns the distance from origin to destination in miles, rounded
// to one decimal.
func (d *DistanceClient) Miles(ctx context.Context, origin, destination string) (float64, error) {
	if d.apiKey == "" {
		return 0, ErrNoAPIKey
	}

	q := url.Values{}
	q.Set("origins", origin)
	q.Set("destinations", destination)
	q.Set("units", "imperial")
	q.Set("key", d.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create distance request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("distance request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("distance request: status %d", resp.StatusCode)
	}

	var body distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode distance response: %w", err)
	}
	if body.Status != "OK" {
		return 0, fmt.Errorf("distance status %s: %s", body.Status, body.ErrorMessage)
	}
	if len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("distance response has no elements")
	}
	el := body.Rows[0].Elements[0]
	if el.Status != "OK" {
		return 0, fmt.Errorf("distance element status %s", el.Status)
	}
	return math.Round(el.Distance.Value/metersPerMile*10) / 10, nil
}
