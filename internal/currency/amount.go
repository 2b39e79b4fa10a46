// Package currency models dual-currency (USD/LBP) monetary values used
// across orders, invoices and commissions.
package currency

// Amount is a pair of monetary values, one per currency leg. Orders in the
// field are priced in USD, LBP or both; arithmetic is always applied to each
// leg independently.
type Amount struct {
	USD float64
	LBP float64
}

// Add returns the leg-wise sum of two amounts.
func (a Amount) Add(b Amount) Amount {
	return Amount{USD: a.USD + b.USD, LBP: a.LBP + b.LBP}
}

// Percent returns rate% of the amount, applied to each leg independently.
func (a Amount) Percent(rate float64) Amount {
	return Amount{USD: a.USD * rate / 100, LBP: a.LBP * rate / 100}
}

// HasValue reports whether at least one leg is positive.
func (a Amount) HasValue() bool {
	return a.USD > 0 || a.LBP > 0
}

// IsMultiCurrency reports whether both legs carry a positive value. Such
// amounts require an exchange-rate reference to be invoiced.
func (a Amount) IsMultiCurrency() bool {
	return a.USD > 0 && a.LBP > 0
}

// IsZero reports whether both legs are zero.
func (a Amount) IsZero() bool {
	return a.USD == 0 && a.LBP == 0
}
