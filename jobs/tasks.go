// Package jobs wires background work through Asynq: the queue worker, the
// enqueue client and the cron scheduler for the monthly commission batch.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cedarline-erp/cedarline-erp/internal/commission"
	jobmetrics "github.com/cedarline-erp/cedarline-erp/internal/jobs"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCommissionCalculate runs the commission batch for one period.
	TaskCommissionCalculate = "commission:calculate_period"

	jobNameCommission = "commission_calculate"
)

// CommissionCalculatePayload names the period to calculate. Empty dates mean
// the previous calendar month at execution time, which is what the monthly
// cron enqueues.
type CommissionCalculatePayload struct {
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`
}

// NewCommissionCalculateTask constructs an Asynq task for one period.
func NewCommissionCalculateTask(payload CommissionCalculatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionCalculate, data, asynq.Queue(QueueDefault)), nil
}

// PeriodCalculator runs one commission batch; satisfied by
// commission.Calculator.
type PeriodCalculator interface {
	CalculateForPeriod(ctx context.Context, period shared.Period, actorID int64) (commission.Summary, error)
}

// NewCommissionCalculateHandler builds the Asynq handler around the
// calculator. Malformed payloads and already-running batches are not retried.
func NewCommissionCalculateHandler(calc PeriodCalculator, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CommissionCalculatePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Error("commission task payload", slog.Any("error", err))
			return asynq.SkipRetry
		}

		period, err := payload.period(time.Now())
		if err != nil {
			logger.Error("commission task period", slog.Any("error", err))
			return asynq.SkipRetry
		}

		tracker := metrics.Track(jobNameCommission)
		summary, err := calc.CalculateForPeriod(ctx, period, shared.SystemActorID)
		if err != nil {
			if errors.Is(err, commission.ErrBatchRunning) {
				logger.Warn("commission batch already running", slog.String("period", period.Key()))
				_ = tracker.End(nil)
				return asynq.SkipRetry
			}
			return tracker.End(err)
		}

		metrics.AddCommissionOutcomes(summary.Calculated, summary.Skipped, summary.Failed)
		logger.Info("commission batch done",
			slog.String("period", period.Key()),
			slog.Int("calculated", summary.Calculated),
			slog.Int("skipped", summary.Skipped),
			slog.Int("failed", summary.Failed),
		)
		return tracker.End(nil)
	}
}

func (p CommissionCalculatePayload) period(now time.Time) (shared.Period, error) {
	if p.PeriodStart == "" && p.PeriodEnd == "" {
		return shared.PreviousMonthWindow(now), nil
	}
	start, err := time.Parse("2006-01-02", p.PeriodStart)
	if err != nil {
		return shared.Period{}, fmt.Errorf("parse period_start: %w", err)
	}
	end, err := time.Parse("2006-01-02", p.PeriodEnd)
	if err != nil {
		return shared.Period{}, fmt.Errorf("parse period_end: %w", err)
	}
	period := shared.Period{Start: start, End: end}
	return period, period.Validate()
}
