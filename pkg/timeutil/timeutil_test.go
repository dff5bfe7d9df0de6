package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekBounds(t *testing.T) {
	// Sunday 23:30 local is still in the week that started on Monday the 3rd.
	sunday := time.Date(2025, 3, 9, 23, 30, 0, 0, SchoolTZ)
	start, end := WeekBounds(sunday)
	assert.Equal(t, Date(2025, 3, 3), start)
	assert.Equal(t, Date(2025, 3, 10), end)

	// 18:00 UTC on Sunday is already Monday 01:00 at UTC+7.
	utc := time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)
	start, _ = WeekBounds(utc)
	assert.Equal(t, Date(2025, 3, 10), start)
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(time.Date(2025, 12, 31, 12, 0, 0, 0, SchoolTZ))
	assert.Equal(t, Date(2025, 12, 1), start)
	assert.Equal(t, Date(2026, 1, 1), end)
}

func TestFormatAndParse(t *testing.T) {
	ts := time.Date(2025, 3, 9, 20, 15, 0, 0, time.UTC)
	assert.Equal(t, "10/03/2025", FormatDate(ts))
	assert.Equal(t, "10/03/2025 03:15", FormatDateTime(ts))

	d, err := ParseDate("01/09/2024")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, 9, 1), d)
	assert.True(t, IsSameDay(d, d.Add(23*time.Hour)))
}

func TestSetLocation(t *testing.T) {
	require.Error(t, SetLocation("Not/AZone"))
	require.NoError(t, SetLocation(""))
	assert.Equal(t, SchoolTZ, Location())
}
