package viator_test

import (
	"testing"

	"bitbucket.org/vron/connector-hub/internal/viator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateConversionRoundTrips(t *testing.T) {
	dates := []string{"2024-01-01", "2024-02-29", "2024-12-31", "1999-06-15"}

	for _, date := range dates {
		backend, err := viator.ToBackendDate(date)
		require.NoError(t, err, date)

		roundTripped, err := viator.FromBackendDate(backend)
		require.NoError(t, err, date)
		assert.Equal(t, date, roundTripped)
	}
}

func TestToBackendDateFormat(t *testing.T) {
	backend, err := viator.ToBackendDate("2024-01-02")

	require.NoError(t, err)
	assert.Equal(t, "2024-Jan-02", backend)
}

func TestToBackendDateRejectsOtherShapes(t *testing.T) {
	_, err := viator.ToBackendDate("02/01/2024")
	assert.Error(t, err)

	_, err = viator.ToBackendDate("2024-13-01")
	assert.Error(t, err)
}

func TestDateRangeIsInclusive(t *testing.T) {
	dates, err := viator.DateRange("2024-01-01", "2024-01-03")

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, dates)
}

func TestDateRangeSingleDay(t *testing.T) {
	dates, err := viator.DateRange("2024-01-01", "2024-01-01")

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, dates)
}

func TestDateRangeEndBeforeStartIsEmpty(t *testing.T) {
	dates, err := viator.DateRange("2024-01-03", "2024-01-01")

	require.NoError(t, err)
	assert.Empty(t, dates)
}
