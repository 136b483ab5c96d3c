package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"floodwatch/internal/types"
)

// WeatherClient fetches current conditions from the Open-Meteo forecast API
// for the poller's periodic ingestion. The API is keyless; resilience comes
// from the shared BaseClient.
type WeatherClient struct {
	base    *BaseClient
	baseURL string
}

// NewWeatherClient creates a WeatherClient. baseURL defaults to the public
// Open-Meteo endpoint when empty.
func NewWeatherClient(httpClient *http.Client, baseURL string, opts ...BaseClientOption) *WeatherClient {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com/v1/forecast"
	}
	return &WeatherClient{
		base:    NewBaseClient(httpClient, "open-meteo", DefaultRetryPolicy(), "floodwatch/1.0", opts...),
		baseURL: baseURL,
	}
}

// CurrentConditions is one observation snapshot for a coordinate.
type CurrentConditions struct {
	Temperature   float64 `json:"temperature_2m"`
	Humidity      float64 `json:"relative_humidity_2m"`
	Precipitation float64 `json:"precipitation"`
}

type forecastResponse struct {
	Current CurrentConditions `json:"current"`
}

// FetchCurrent returns the current temperature, humidity, and precipitation
// at the given coordinate.
func (c *WeatherClient) FetchCurrent(ctx context.Context, lat, lon float64) (*CurrentConditions, error) {
	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current=temperature_2m,relative_humidity_2m,precipitation&timezone=UTC",
		c.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build weather request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeBackendFailure,
			fmt.Sprintf("weather API returned %d", resp.StatusCode),
			nil,
		)
	}

	var out forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewAppError(types.ErrCodeBackendFailure, "failed to decode weather response", err)
	}
	return &out.Current, nil
}
