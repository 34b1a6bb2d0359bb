package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roadworks-api/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }

func TestLocationKeyNormalisesWhitespaceAndCase(t *testing.T) {
	a := LocationKey("13.0827, 80.2707")
	b := LocationKey(" 13.0827,80.2707 ")
	assert.Equal(t, a, b)
	assert.Equal(t, "loc:13.0827,80.2707", a.String())
}

func TestGridKeyRejectsInvalidTokens(t *testing.T) {
	_, ok := GridKey("not-a-cell")
	assert.False(t, ok)

	_, ok = GridKey("")
	assert.False(t, ok)
}

func TestGridKeyCanonicalisesToken(t *testing.T) {
	token := CellToken(13.0827, 80.2707, DefaultGridLevel)
	require.NotEmpty(t, token)

	key, ok := GridKey(token)
	require.True(t, ok)
	assert.Equal(t, KindGrid, key.Kind)
	assert.Equal(t, token, key.Value)
}

func TestCellTokenStableForSamePoint(t *testing.T) {
	a := CellToken(13.0827, 80.2707, DefaultGridLevel)
	b := CellToken(13.0827, 80.2707, DefaultGridLevel)
	assert.Equal(t, a, b)
}

func TestKeysOrderedMostSpecificFirst(t *testing.T) {
	item := &models.DefectItem{
		ID:          "PH-2024-001",
		GridID:      CellToken(13.0827, 80.2707, DefaultGridLevel),
		ServerID:    int64Ptr(42),
		RawLocation: "13.0827, 80.2707",
	}

	keys := Keys(item)
	require.Len(t, keys, 3)
	assert.Equal(t, KindGrid, keys[0].Kind)
	assert.Equal(t, KindServer, keys[1].Kind)
	assert.Equal(t, KindLocation, keys[2].Kind)
}

func TestKeysSkipsAbsentIdentities(t *testing.T) {
	item := &models.DefectItem{ID: "PH-2024-002", RawLocation: "13.0569, 80.2425"}

	keys := Keys(item)
	require.Len(t, keys, 1)
	assert.Equal(t, KindLocation, keys[0].Kind)
}

func TestKeysFallsBackToCoordinates(t *testing.T) {
	item := &models.DefectItem{
		ID:          "PH-2024-003",
		Coordinates: &models.Coordinates{Lat: 13.045, Lon: 80.2494},
	}

	keys := Keys(item)
	require.Len(t, keys, 1)
	assert.Equal(t, "loc:13.0450,80.2494", keys[0].String())
}

func TestKeysNilItem(t *testing.T) {
	assert.Nil(t, Keys(nil))
}
