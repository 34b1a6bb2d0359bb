// Package identity normalises the several interchangeable identifiers a
// defect can carry (spatial grid cell, server row id, raw location
// string) into one ordered set of cache keys, so that a single physical
// location resolves to the same cache entry across API responses that
// populate different identity fields.
package identity

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/golang/geo/s2"

	"github.com/noah-isme/roadworks-api/internal/models"
)

// Kind tags a key variant. Ordering of the constants reflects lookup
// priority: grid cells are the most specific, raw locations the least.
type Kind string

const (
	KindGrid     Kind = "grid"
	KindServer   Kind = "db"
	KindLocation Kind = "loc"
)

// DefaultGridLevel is the S2 cell level used when deriving grid tokens
// from coordinates. Level 20 cells are roughly ten metres across, tight
// enough to separate neighbouring defects on the same road.
const DefaultGridLevel = 20

// Key is one addressable identity of a physical defect location.
type Key struct {
	Kind  Kind
	Value string
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.Value
}

// GridKey canonicalises an S2 cell token into a grid key. Tokens that
// do not decode to a valid cell are rejected.
func GridKey(token string) (Key, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Key{}, false
	}
	cell := s2.CellIDFromToken(token)
	if !cell.IsValid() {
		return Key{}, false
	}
	return Key{Kind: KindGrid, Value: cell.ToToken()}, true
}

// ServerKey wraps a server-assigned numeric row id.
func ServerKey(id int64) Key {
	return Key{Kind: KindServer, Value: strconv.FormatInt(id, 10)}
}

// LocationKey normalises a raw "lat, lon" string: lower-cased with all
// whitespace stripped, so formatting drift between fetches is harmless.
func LocationKey(raw string) Key {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return Key{Kind: KindLocation, Value: b.String()}
}

// CellToken derives an S2 grid token for a coordinate pair.
func CellToken(lat, lon float64, level int) string {
	if level <= 0 || level > 30 {
		level = DefaultGridLevel
	}
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(level).ToToken()
}

// Keys returns the candidate cache keys for an item, most specific
// first. Lookups try the keys in order and return the first hit; writes
// go to every key so future lookups under a less specific key succeed.
func Keys(item *models.DefectItem) []Key {
	if item == nil {
		return nil
	}
	keys := make([]Key, 0, 3)
	if key, ok := GridKey(item.GridID); ok {
		keys = append(keys, key)
	}
	if item.ServerID != nil {
		keys = append(keys, ServerKey(*item.ServerID))
	}
	raw := item.RawLocation
	if raw == "" && item.Coordinates != nil {
		raw = strconv.FormatFloat(item.Coordinates.Lat, 'f', 4, 64) + "," +
			strconv.FormatFloat(item.Coordinates.Lon, 'f', 4, 64)
	}
	if key := LocationKey(raw); key.Value != "" {
		keys = append(keys, key)
	}
	return keys
}
