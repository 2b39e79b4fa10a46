package commission

import "time"

// SetRateRequest inserts a new rate version.
type SetRateRequest struct {
	SalesRepID     *int64  `json:"sales_rep_id"`
	Type           Type    `json:"commission_type" validate:"required"`
	RatePercentage float64 `json:"rate_percentage" validate:"gte=0,lte=100"`
	EffectiveFrom  string  `json:"effective_from" validate:"required,datetime=2006-01-02"`
}

// CalculateRequest runs the batch for one period. Omitting both dates runs
// the previous calendar month.
type CalculateRequest struct {
	PeriodStart string `json:"period_start" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"omitempty,datetime=2006-01-02"`
}

// ApproveRequest approves a set of calculated rows.
type ApproveRequest struct {
	CalculationIDs []int64 `json:"calculation_ids" validate:"required,min=1"`
}

// RecordPaymentRequest settles approved rows for one rep.
type RecordPaymentRequest struct {
	SalesRepID     int64         `json:"sales_rep_id" validate:"required"`
	CalculationIDs []int64       `json:"calculation_ids" validate:"required,min=1"`
	Method         PaymentMethod `json:"method" validate:"required"`
	PaidAt         string        `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
	Reference      string        `json:"reference"`
	Notes          *string       `json:"notes"`
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
