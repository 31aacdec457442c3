package models

import "encoding/json"

// Location is a point on the globe, optionally labeled with a city name.
// Locations are replaced wholesale, never partially updated.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
}

// Store keys for the two persisted locations.
const (
	KeyCurrentLocation  = "location:current"
	KeySelectedLocation = "location:selected"
)

// CacheEntry is a cached upstream response. Timestamp is epoch milliseconds
// at write time; the entry is fresh while now - Timestamp < maxAge.
type CacheEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// HighLow holds the derived forecast temperature extremes, rounded to the
// nearest integer.
type HighLow struct {
	High int `json:"high"`
	Low  int `json:"low"`
}
