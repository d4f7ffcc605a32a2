package codec

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/materia"
)

func TestDate_RFC3339_Roundtrip(t *testing.T) {
	c := NewDate()
	ctx := context.Background()

	in := "2025-01-01T00:00:00Z"
	got, err := c.Decode(ctx, in, "")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	out, err := c.Encode(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDate_Decode_Layout_Before_Permissive(t *testing.T) {
	c := NewDate()
	// 03/04/2024 is March 4th for a permissive parser; the layout says April 3rd.
	got, err := c.Decode(context.Background(), "03/04/2024 10:00:00", DefaultDisplayLayout)
	require.NoError(t, err)
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 3, got.Day())
}

func TestDate_Decode_Permissive_InLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	c := NewDate(WithLocation(tokyo))

	got, err := c.Decode(context.Background(), "2024-05-06 07:08:09", "")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", got.Location().String())
	assert.Equal(t, 7, got.Hour())
}

func TestDate_Decode_Invalid(t *testing.T) {
	_, err := NewDate().Decode(context.Background(), "not a date", "")
	require.Error(t, err)
	iss, ok := materia.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, materia.CodeInvalidFormat, iss[0].Code)
}

func TestDate_Encode_Zero_Error(t *testing.T) {
	_, err := NewDate().Encode(context.Background(), time.Time{})
	require.Error(t, err)
}

func TestDate_Bundle(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	c := NewDate(WithClock(func() time.Time { return now }))
	ts := time.Date(2025, 1, 8, 12, 30, 15, 0, time.UTC)

	b, err := c.Bundle(ts, "Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-08T12:30:15Z", b["iso"])
	assert.Equal(t, "2025-01-08T12:30:15Z", b["utc"])
	assert.Equal(t, "08/01/2025 12:30:15", b["formatted"])
	assert.Equal(t, "08/01/2025 21:30:15", b["local"])
	assert.Equal(t, "Asia/Tokyo", b["timezone"])
	assert.Equal(t, ts.Unix(), b["timestamp"])
	assert.Equal(t, "1 day ago", b["diff_from_now"])

	_, err = c.Bundle(ts, "Nowhere/Special")
	require.Error(t, err)
}

func TestDate_FromUnix(t *testing.T) {
	c := NewDate()
	assert.True(t, c.FromUnix(1700000000).Equal(time.Unix(1700000000, 0)))
	assert.True(t, c.FromUnixFloat(1700000000.5).Equal(time.Unix(1700000000, 500000000)))
}
