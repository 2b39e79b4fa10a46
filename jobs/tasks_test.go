package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/cedarline-erp/cedarline-erp/internal/commission"
	jobmetrics "github.com/cedarline-erp/cedarline-erp/internal/jobs"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

func TestCommissionPayloadDefaultsToPreviousMonth(t *testing.T) {
	now := time.Date(2026, time.July, 14, 10, 0, 0, 0, time.UTC)

	period, err := CommissionCalculatePayload{}.period(now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), period.Start)
	require.Equal(t, time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC), period.End)
}

func TestCommissionPayloadParsesExplicitPeriod(t *testing.T) {
	payload := CommissionCalculatePayload{PeriodStart: "2026-03-01", PeriodEnd: "2026-03-31"}

	period, err := payload.period(time.Now())
	require.NoError(t, err)
	require.Equal(t, "2026-03", period.Key())
}

func TestCommissionPayloadRejectsReversedPeriod(t *testing.T) {
	payload := CommissionCalculatePayload{PeriodStart: "2026-03-31", PeriodEnd: "2026-03-01"}

	_, err := payload.period(time.Now())
	require.Error(t, err)
}

func TestNewCommissionCalculateTask(t *testing.T) {
	task, err := NewCommissionCalculateTask(CommissionCalculatePayload{PeriodStart: "2026-03-01", PeriodEnd: "2026-03-31"})
	require.NoError(t, err)
	require.Equal(t, TaskCommissionCalculate, task.Type())
	require.Contains(t, string(task.Payload()), "2026-03-01")
}

type captureCalculator struct {
	actorID int64
	period  shared.Period
}

func (c *captureCalculator) CalculateForPeriod(ctx context.Context, period shared.Period, actorID int64) (commission.Summary, error) {
	c.actorID = actorID
	c.period = period
	return commission.Summary{}, nil
}

func TestCommissionHandlerRunsAsSystemActor(t *testing.T) {
	calc := &captureCalculator{}
	handler := NewCommissionCalculateHandler(calc, jobmetrics.NewMetrics(prometheus.NewRegistry()), discardLogger())

	task, err := NewCommissionCalculateTask(CommissionCalculatePayload{})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))

	require.Equal(t, shared.SystemActorID, calc.actorID)
	require.False(t, calc.period.Start.IsZero())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
