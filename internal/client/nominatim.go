package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/models"
	"github.com/noah-isme/roadworks-api/pkg/config"
	appErrors "github.com/noah-isme/roadworks-api/pkg/errors"
)

// GeocodeClient resolves coordinates to a road name and district via a
// Nominatim-compatible reverse-lookup endpoint. Rate limiting is the
// caller's responsibility; this client performs one call per Reverse.
type GeocodeClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zap.Logger
}

// NewGeocodeClient constructs the client.
func NewGeocodeClient(cfg config.GeocodeConfig, logger *zap.Logger) *GeocodeClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeocodeClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

// Place is the extracted best-effort description of a coordinate pair.
type Place struct {
	RoadName string
	District string
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road          string `json:"road"`
		Pedestrian    string `json:"pedestrian"`
		Footway       string `json:"footway"`
		Neighbourhood string `json:"neighbourhood"`
		District      string `json:"district"`
		CityDistrict  string `json:"city_district"`
		County        string `json:"county"`
		Suburb        string `json:"suburb"`
		Region        string `json:"region"`
		State         string `json:"state"`
	} `json:"address"`
}

// Reverse performs one reverse lookup for the coordinate pair.
func (c *GeocodeClient) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	endpoint := fmt.Sprintf("%s/reverse?lat=%s&lon=%s&format=jsonv2&zoom=16",
		c.baseURL,
		url.QueryEscape(fmt.Sprintf("%f", lat)),
		url.QueryEscape(fmt.Sprintf("%f", lon)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Place{}, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "build reverse lookup request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Place{}, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "reverse lookup unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, appErrors.Wrap(fmt.Errorf("status %d", resp.StatusCode),
			appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "reverse lookup failed")
	}

	var payload reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Place{}, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode reverse lookup response")
	}

	return Place{
		RoadName: roadFrom(payload),
		District: districtFrom(payload),
	}, nil
}

// roadFrom picks the most road-like field available.
func roadFrom(r reverseResponse) string {
	for _, candidate := range []string{
		r.Address.Road,
		r.Address.Pedestrian,
		r.Address.Footway,
		r.Address.Neighbourhood,
		r.DisplayName,
	} {
		if candidate != "" {
			return candidate
		}
	}
	return models.UnknownRoad
}

// districtFrom picks the most district-like administrative field.
func districtFrom(r reverseResponse) string {
	for _, candidate := range []string{
		r.Address.District,
		r.Address.CityDistrict,
		r.Address.County,
		r.Address.Suburb,
		r.Address.Region,
		r.Address.State,
	} {
		if candidate != "" {
			return candidate
		}
	}
	return models.UnknownDistrict
}
