// Package places wraps the Google Places autocomplete API for university
// lookups.
package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"edumate-api/internal/models"
	"edumate-api/internal/utils"
)

const autocompleteURL = "https://maps.googleapis.com/maps/api/place/autocomplete/json"

// Client queries the Places autocomplete endpoint, biased to universities.
type Client struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewClient creates a places client. An empty key leaves the client
// unloaded; suggestion calls then return empty lists instead of errors.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		apiURL: autocompleteURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// IsLoaded reports whether the client has an API key configured.
func (c *Client) IsLoaded() bool {
	return c.apiKey != ""
}

type autocompleteResponse struct {
	Status      string `json:"status"`
	Predictions []struct {
		PlaceID     string `json:"place_id"`
		Description string `json:"description"`
	} `json:"predictions"`
}

// GetUniversitySuggestions returns autocomplete entries for a partial
// university name. Queries under two characters return nothing.
func (c *Client) GetUniversitySuggestions(ctx context.Context, query string) ([]models.UniversitySuggestion, error) {
	if len(query) < 2 || !c.IsLoaded() {
		return []models.UniversitySuggestion{}, nil
	}

	params := url.Values{}
	params.Set("input", query)
	params.Set("types", "university")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create autocomplete request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "autocomplete request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("autocomplete API returned status %d", resp.StatusCode)
	}

	var body autocompleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "failed to decode autocomplete response")
	}

	// ZERO_RESULTS is a normal empty answer, not an error.
	if body.Status != "OK" && body.Status != "ZERO_RESULTS" {
		return nil, eris.Errorf("autocomplete API status %s", body.Status)
	}

	suggestions := make([]models.UniversitySuggestion, 0, len(body.Predictions))
	for _, p := range body.Predictions {
		suggestions = append(suggestions, models.UniversitySuggestion{
			PlaceID:     p.PlaceID,
			Description: p.Description,
		})
	}

	utils.GetLogger().Debug("University autocomplete",
		zap.String("query", query),
		zap.Int("results", len(suggestions)),
	)
	return suggestions, nil
}
