package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw      string
		expected Cents
	}{
		{"50.00", 5000},
		{"30", 3000},
		{"0.05", 5},
		{"129.9", 12990},
		{"-12.25", -1225},
	}
	for _, tc := range cases {
		parsed, err := Parse(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.expected, parsed, tc.raw)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "abc", "1.234", "1..2"} {
		_, err := Parse(raw)
		assert.Error(t, err, raw)
	}
}

func TestStringRoundTrip(t *testing.T) {
	assert.Equal(t, "130.00", Cents(13000).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-4.50", Cents(-450).String())
}

func TestMulQuantityExact(t *testing.T) {
	unit, err := Parse("50.00")
	require.NoError(t, err)
	assert.Equal(t, Cents(10000), unit.MulQuantity(2))
}

func TestScanDecimalBytes(t *testing.T) {
	var c Cents
	require.NoError(t, c.Scan([]byte("130.00")))
	assert.Equal(t, Cents(13000), c)
}

func TestScanRejectsAmbiguousInteger(t *testing.T) {
	var c Cents
	err := c.Scan(int64(130))
	require.Error(t, err)
	assert.Zero(t, c)
}

func TestValueCanonical(t *testing.T) {
	v, err := Cents(5000).Value()
	require.NoError(t, err)
	assert.Equal(t, "50.00", v)
}
