package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonthWindow(t *testing.T) {
	p := MonthWindow(time.Date(2024, 2, 14, 15, 30, 0, 0, time.UTC))
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Start)
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), p.End)
}

func TestPreviousMonthWindow(t *testing.T) {
	p := PreviousMonthWindow(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Start)
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), p.End)
}

func TestPeriodContains(t *testing.T) {
	p := MonthWindow(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.True(t, p.Contains(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	require.True(t, p.Contains(time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)))
	require.False(t, p.Contains(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodValidate(t *testing.T) {
	require.NoError(t, MonthWindow(time.Now()).Validate())
	bad := Period{Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.ErrorIs(t, bad.Validate(), ErrInvalidPeriod)
}

func TestPeriodKey(t *testing.T) {
	require.Equal(t, "2024-02", MonthWindow(time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)).Key())
	custom := Period{
		Start: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
	}
	require.Equal(t, "2024-01-15:2024-02-15", custom.Key())
}
