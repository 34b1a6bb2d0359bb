package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/models"
	"github.com/noah-isme/roadworks-api/pkg/config"
)

func newGeocodeClient(baseURL string) *GeocodeClient {
	return NewGeocodeClient(config.GeocodeConfig{
		BaseURL:   baseURL,
		UserAgent: "test-agent",
		Timeout:   2 * time.Second,
	}, zap.NewNop())
}

func TestGeocodeReverseExtractsRoadAndDistrict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		w.Write([]byte(`{
			"display_name": "somewhere in Chennai",
			"address": {"road": "Anna Salai", "city_district": "Teynampet", "state": "Tamil Nadu"}
		}`))
	}))
	defer server.Close()

	place, err := newGeocodeClient(server.URL).Reverse(context.Background(), 13.0827, 80.2707)
	require.NoError(t, err)
	assert.Equal(t, "Anna Salai", place.RoadName)
	assert.Equal(t, "Teynampet", place.District)
}

func TestGeocodeReverseFieldFallbackChain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"display_name": "generic place",
			"address": {"footway": "Beach Walk", "state": "Tamil Nadu"}
		}`))
	}))
	defer server.Close()

	place, err := newGeocodeClient(server.URL).Reverse(context.Background(), 13.05, 80.28)
	require.NoError(t, err)
	assert.Equal(t, "Beach Walk", place.RoadName)
	assert.Equal(t, "Tamil Nadu", place.District)
}

func TestGeocodeReverseEmptyAddressUsesSentinels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address": {}}`))
	}))
	defer server.Close()

	place, err := newGeocodeClient(server.URL).Reverse(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.UnknownRoad, place.RoadName)
	assert.Equal(t, models.UnknownDistrict, place.District)
}

func TestGeocodeReverseServerErrorIsUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newGeocodeClient(server.URL).Reverse(context.Background(), 13.05, 80.28)
	require.Error(t, err)
}
