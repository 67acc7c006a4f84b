// Package exchange fetches and caches currency conversion rates.
package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"edumate-api/internal/utils"
)

// cacheTTL bounds how long a rate table is served without a refresh.
const cacheTTL = time.Hour

// Service serves INR-based conversion rates with a stale-tolerant cache:
// if a refresh fails and a previous table exists, the stale table is
// served rather than failing the caller.
type Service struct {
	apiURL string
	client *http.Client

	mu        sync.Mutex
	rates     map[string]float64
	fetchedAt time.Time
}

// NewService creates an exchange rate service against the given API URL.
func NewService(apiURL string) *Service {
	return &Service{
		apiURL: apiURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type ratesResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// GetRates returns the rate table, refreshing when the cache is older
// than an hour.
func (s *Service) GetRates(ctx context.Context) (map[string]float64, error) {
	s.mu.Lock()
	if s.rates != nil && time.Since(s.fetchedAt) < cacheTTL {
		rates := s.rates
		s.mu.Unlock()
		return rates, nil
	}
	s.mu.Unlock()

	fresh, err := s.fetch(ctx)
	if err != nil {
		s.mu.Lock()
		stale := s.rates
		s.mu.Unlock()
		if stale != nil {
			utils.GetLogger().Warn("exchange rate refresh failed, serving stale table",
				zap.Error(err),
			)
			return stale, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.rates = fresh
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	return fresh, nil
}

func (s *Service) fetch(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.apiURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create exchange rate request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "exchange rate request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("exchange rate API returned status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "failed to decode exchange rate response")
	}
	if len(body.Rates) == 0 {
		return nil, eris.New("exchange rate response had no rates")
	}

	return body.Rates, nil
}
