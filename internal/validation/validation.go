package validation

import (
	"errors"
	"strconv"
	"strings"
)

// ErrLatitudeInvalid is returned when latitude is missing, unparsable, or out of range.
var ErrLatitudeInvalid = errors.New("latitude must be a number between -90 and 90")

// ErrLongitudeInvalid is returned when longitude is missing, unparsable, or out of range.
var ErrLongitudeInvalid = errors.New("longitude must be a number between -180 and 180")

// ParseCoordinates parses and range-checks lat/lon query values. Returns
// errors suitable for 400 INVALID_COORDINATES responses.
func ParseCoordinates(latStr, lonStr string) (lat, lon float64, err error) {
	lat, err = parseInRange(latStr, -90, 90, ErrLatitudeInvalid)
	if err != nil {
		return 0, 0, err
	}
	lon, err = parseInRange(lonStr, -180, 180, ErrLongitudeInvalid)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func parseInRange(s string, min, max float64, rangeErr error) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, rangeErr
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, rangeErr
	}
	if v < min || v > max {
		return 0, rangeErr
	}
	return v, nil
}
