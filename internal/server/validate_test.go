package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDateAcceptsRealDates(t *testing.T) {
	d, err := buildDate(2019, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 10, 5, 0, 0, 0, 0, time.UTC), d)

	// both ends of the accepted year range
	_, err = buildDate(1920, 1, 1)
	assert.NoError(t, err)
	_, err = buildDate(2021, 12, 31)
	assert.NoError(t, err)

	// leap day on a leap year
	_, err = buildDate(2020, 2, 29)
	assert.NoError(t, err)
}

func TestBuildDateRejectsOutOfRangeComponents(t *testing.T) {
	cases := []struct {
		name             string
		year, month, day int
	}{
		{"year below range", 1919, 6, 15},
		{"year above range", 2022, 6, 15},
		{"month zero", 2019, 0, 15},
		{"month thirteen", 2019, 13, 15},
		{"day zero", 2019, 6, 0},
		{"day thirty-two", 2019, 6, 32},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildDate(tc.year, tc.month, tc.day)
			assert.Error(t, err)
		})
	}
}

func TestBuildDateRejectsImpossibleCalendarDates(t *testing.T) {
	_, err := buildDate(2019, 2, 31)
	assert.Error(t, err)

	// leap day on a non-leap year
	_, err = buildDate(2019, 2, 29)
	assert.Error(t, err)

	_, err = buildDate(2019, 4, 31)
	assert.Error(t, err)
}
