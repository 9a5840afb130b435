package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	in := time.Date(2026, 2, 3, 4, 5, 6, 7, time.FixedZone("X", 3600))

	s := FormatTimestamp(in)
	assert.Equal(t, "2026-02-03T03:05:06.000000007Z", s)

	out, err := ParseTimestamp(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
}

func TestTimestampOrdering(t *testing.T) {
	a := FormatTimestamp(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	b := FormatTimestamp(time.Date(2026, 1, 1, 9, 0, 0, 500, time.UTC))
	assert.Less(t, a, b)
}

func TestParseTimestampFallback(t *testing.T) {
	got, err := ParseTimestamp("2026-01-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), got)

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestDates(t *testing.T) {
	d, err := ParseDate("2026-07-04")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-04", FormatDate(d))

	_, err = ParseDate("07/04/2026")
	assert.Error(t, err)

	assert.Nil(t, FormatTimestampPtr(nil))
}
