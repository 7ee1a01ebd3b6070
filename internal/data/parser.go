// internal/data/parser.go
package data

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// EmailField carries the shared secret configured in the Torque app.
const EmailField = "eml"

// Degree is what the escaped degree sign in unit strings is replaced with.
const Degree = "°"

// Torque does not decode UTF-8 in units, it sends the bytes as literal text.
const escapedDegree = `\xC2\xB0`

var ErrMalformedIdentifier = errors.New("malformed sensor identifier")

var (
	nameKey  = regexp.MustCompile(`^userFullName(\w+)$`)
	unitKey  = regexp.MustCompile(`^userUnit(\w+)$`)
	valueKey = regexp.MustCompile(`^k(\w+)$`)
)

// Decode extracts sensor names, units and values from Torque query parameters.
// Any malformed identifier fails the whole request.
func Decode(query url.Values) (*Reading, error) {
	reading := &Reading{
		Names:  make(map[SensorID]string),
		Units:  make(map[SensorID]string),
		Values: make(map[SensorID]string),
	}

	// Sorted so that two spellings of one id (kff, kFF) resolve the same way every time.
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := query.Get(key)

		if m := nameKey.FindStringSubmatch(key); m != nil {
			id, err := ParseSensorID(m[1])
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", key, err)
			}
			reading.Names[id] = value
		} else if m := unitKey.FindStringSubmatch(key); m != nil {
			id, err := ParseSensorID(m[1])
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", key, err)
			}
			reading.Units[id] = FixUnit(value)
		} else if m := valueKey.FindStringSubmatch(key); m != nil {
			id, err := ParseSensorID(m[1])
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", key, err)
			}
			reading.Values[id] = value
		}
	}

	return reading, nil
}

// ParseSensorID parses a hex identifier suffix.
func ParseSensorID(hex string) (SensorID, error) {
	n, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedIdentifier, hex)
	}
	return SensorID(n), nil
}

// FormatSensorID renders id as lowercase hex without leading zeros.
func FormatSensorID(id SensorID) string {
	return strconv.FormatUint(uint64(id), 16)
}

func (id SensorID) String() string { return FormatSensorID(id) }

// FixUnit replaces the escaped degree sign Torque puts in temperature units.
func FixUnit(unit string) string {
	return strings.ReplaceAll(unit, escapedDegree, Degree)
}
