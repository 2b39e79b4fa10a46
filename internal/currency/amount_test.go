package currency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountAdd(t *testing.T) {
	a := Amount{USD: 100, LBP: 8900000}
	b := Amount{USD: 50, LBP: 4450000}

	sum := a.Add(b)
	require.Equal(t, 150.0, sum.USD)
	require.Equal(t, 13350000.0, sum.LBP)
}

func TestAmountPercent(t *testing.T) {
	a := Amount{USD: 100, LBP: 8900000}

	c := a.Percent(4)
	require.Equal(t, 4.0, c.USD)
	require.Equal(t, 356000.0, c.LBP)
}

func TestAmountPercentSingleLeg(t *testing.T) {
	a := Amount{USD: 250}

	c := a.Percent(2.5)
	require.Equal(t, 6.25, c.USD)
	require.Equal(t, 0.0, c.LBP)
}

func TestAmountHasValue(t *testing.T) {
	require.True(t, Amount{USD: 1}.HasValue())
	require.True(t, Amount{LBP: 1}.HasValue())
	require.False(t, Amount{}.HasValue())
	require.False(t, Amount{USD: -5}.HasValue())
}

func TestAmountIsMultiCurrency(t *testing.T) {
	require.True(t, Amount{USD: 10, LBP: 890000}.IsMultiCurrency())
	require.False(t, Amount{USD: 10}.IsMultiCurrency())
	require.False(t, Amount{LBP: 890000}.IsMultiCurrency())
}

func TestAmountIsZero(t *testing.T) {
	require.True(t, Amount{}.IsZero())
	require.False(t, Amount{USD: 0.01}.IsZero())
}
