package data

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	query := url.Values{
		"eml":                 {"a@b.com"},
		"v":                   {"8"},
		"session":             {"1700000000000"},
		"userFullNameff1001":  {"Speed (GPS)"},
		"userShortNameff1001": {"GPS Spd"},
		"userUnitff1001":      {"km/h"},
		"kff1001":             {"55.3"},
		"k5":                  {"91"},
		"defaultUnit5":        {`\xC2\xB0C`},
	}

	reading, err := Decode(query)
	require.NoError(t, err)

	assert.Equal(t, map[SensorID]string{0xff1001: "Speed (GPS)"}, reading.Names)
	assert.Equal(t, map[SensorID]string{0xff1001: "km/h"}, reading.Units)
	assert.Equal(t, map[SensorID]string{0xff1001: "55.3", 5: "91"}, reading.Values)
}

func TestDecode_Empty(t *testing.T) {
	reading, err := Decode(url.Values{})
	require.NoError(t, err)
	assert.Empty(t, reading.Names)
	assert.Empty(t, reading.Units)
	assert.Empty(t, reading.Values)
}

func TestDecode_MalformedIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
	}{
		{"name", url.Values{"userFullNameSpeed": {"Speed"}}},
		{"unit", url.Values{"userUnitxyz": {"mph"}}},
		{"value", url.Values{"kSpeed": {"55"}}},
		{"underscore", url.Values{"kff_10": {"1"}}},
		{"overflow", url.Values{"k" + strings.Repeat("f", 17): {"1"}}},
		{"bad among good", url.Values{"k0d": {"1"}, "userFullName0d": {"Speed"}, "kzz": {"2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := Decode(tt.query)
			require.Error(t, err)
			assert.Nil(t, reading)
			assert.True(t, errors.Is(err, ErrMalformedIdentifier))
		})
	}
}

func TestDecode_IgnoresNonMatchingKeys(t *testing.T) {
	reading, err := Decode(url.Values{
		"k":             {"no suffix"},
		"userFullName":  {"no suffix"},
		"Kff":           {"wrong case"},
		"kff-1":         {"trailing junk"},
		"profileName":   {"Car"},
		"xuserUnitff01": {"prefix junk"},
	})
	require.NoError(t, err)
	assert.Empty(t, reading.Names)
	assert.Empty(t, reading.Units)
	assert.Empty(t, reading.Values)
}

func TestDecode_FirstValueOfMultiValuedParameter(t *testing.T) {
	reading, err := Decode(url.Values{"k0d": {"60", "61"}})
	require.NoError(t, err)
	assert.Equal(t, "60", reading.Values[0x0d])
}

func TestDecode_Deterministic(t *testing.T) {
	query := url.Values{
		"kff":  {"lower"},
		"kFF":  {"upper"},
		"k0ff": {"padded"},
	}

	first, err := Decode(query)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Decode(query)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	// "kff" sorts last.
	assert.Equal(t, "lower", first.Values[0xff])
}

func TestSensorIDRoundTrip(t *testing.T) {
	for _, h := range []string{"0", "d", "ff1001", "FF1001", "000a", "ffffffffffffffff"} {
		id, err := ParseSensorID(h)
		require.NoError(t, err, h)

		want := strings.TrimLeft(strings.ToLower(h), "0")
		if want == "" {
			want = "0"
		}
		assert.Equal(t, want, FormatSensorID(id))
		assert.Equal(t, want, id.String())
	}
}

func TestFixUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`\xC2\xB0C`, "°C"},
		{`\xC2\xB0F`, "°F"},
		{`\xC2\xB0`, "°"},
		{`a\xC2\xB0b\xC2\xB0`, "a°b°"},
		{`\xc2\xb0C`, `\xc2\xb0C`},
		{"km/h", "km/h"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FixUnit(tt.in), tt.in)
	}

	reading, err := Decode(url.Values{"userUnit5": {`\xC2\xB0C`}})
	require.NoError(t, err)
	assert.Equal(t, "°C", reading.Units[5])
}

func TestSensorRecordClone(t *testing.T) {
	unit, value := "mph", "55"
	rec := &SensorRecord{ID: 1, DisplayName: "Car1 Speed", Unit: &unit, CurrentValue: &value}

	c := rec.Clone()
	*c.CurrentValue = "60"
	*c.Unit = "km/h"

	assert.Equal(t, "55", *rec.CurrentValue)
	assert.Equal(t, "mph", *rec.Unit)
}
