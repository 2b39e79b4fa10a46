package commission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cedarline-erp/cedarline-erp/internal/platform/cache"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

// ErrBatchRunning indicates another calculation run holds the period lock.
var ErrBatchRunning = errors.New("commission: calculation already running for period")

const batchLockTTL = 15 * time.Minute

// Locker serialises batch runs per period. The redis implementation is the
// production one; a nil Locker disables locking.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(ctx context.Context) error, err error)
}

type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker returns a Locker backed by a redis SETNX advisory lock.
func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(ctx context.Context) error, error) {
	lock, err := cache.AcquireLock(ctx, l.client, key, uuid.NewString(), batchLockTTL)
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

// Summary aggregates one calculation run for operator feedback.
type Summary struct {
	Calculated int     `json:"calculated"`
	Skipped    int     `json:"skipped"`
	Failed     int     `json:"failed"`
	TotalUSD   float64 `json:"total_commission_usd"`
	TotalLBP   float64 `json:"total_commission_lbp"`
	Message    string  `json:"message"`
}

// Calculator runs the period batch that turns invoiced orders into
// commission rows, and moves rows through approval.
type Calculator struct {
	repo     Repository
	resolver *Resolver
	locker   Locker
	logger   *slog.Logger
	printer  *message.Printer
}

// NewCalculator builds a Calculator.
func NewCalculator(repo Repository, resolver *Resolver, locker Locker, logger *slog.Logger) *Calculator {
	return &Calculator{
		repo:     repo,
		resolver: resolver,
		locker:   locker,
		logger:   logger,
		printer:  message.NewPrinter(language.English),
	}
}

// CalculateForPeriod scans the period's invoiced orders and writes one
// commission row per uncalculated order. Each insert is its own short
// transaction: one bad order is logged and skipped, never the whole batch.
// An advisory lock keeps two runs for the same period from interleaving;
// the unique constraint on order_id remains the correctness backstop.
func (c *Calculator) CalculateForPeriod(ctx context.Context, period shared.Period, actorID int64) (Summary, error) {
	if err := period.Validate(); err != nil {
		return Summary{}, err
	}

	if c.locker != nil {
		release, err := c.locker.Acquire(ctx, shared.CommissionBatchLockKey(period.Key()))
		if err != nil {
			if errors.Is(err, cache.ErrLockHeld) {
				return Summary{}, ErrBatchRunning
			}
			return Summary{}, err
		}
		defer func() { _ = release(ctx) }()
	}

	orders, err := c.repo.ListInvoicedOrders(ctx, period.Start, period.End)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, order := range orders {
		calc, ok := c.attribute(order)
		if !ok {
			summary.Skipped++
			continue
		}

		rate, err := c.resolver.Resolve(ctx, calc.SalesRepID, calc.Type, order.InvoiceDate)
		if err != nil {
			c.logger.Error("resolve commission rate",
				"order_id", order.OrderID, "sales_rep_id", calc.SalesRepID, "error", err)
			summary.Failed++
			continue
		}

		calc.OrderTotal = order.Total
		calc.RatePercentage = rate
		calc.Amount = order.Total.Percent(rate)
		calc.PeriodStart = period.Start
		calc.PeriodEnd = period.End
		calc.Status = StatusCalculated

		err = c.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
			_, err := repo.InsertCalculation(ctx, calc)
			return err
		})
		switch {
		case errors.Is(err, ErrAlreadyCalculated):
			summary.Skipped++
		case err != nil:
			c.logger.Error("insert commission calculation",
				"order_id", order.OrderID, "error", err)
			summary.Failed++
		default:
			summary.Calculated++
			summary.TotalUSD += calc.Amount.USD
			summary.TotalLBP += calc.Amount.LBP
		}
	}

	summary.Message = c.printer.Sprintf(
		"calculated %d commissions (%d skipped, %d failed), total %.2f USD / %.0f LBP",
		summary.Calculated, summary.Skipped, summary.Failed, summary.TotalUSD, summary.TotalLBP,
	)
	c.logger.Info("commission batch finished",
		"period", period.Key(),
		"calculated", summary.Calculated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"actor_id", actorID,
	)
	return summary, nil
}

// attribute applies the attribution rule: the rep on the order wins
// outright; the customer's standing rep is the fallback; no rep means the
// order earns nothing.
func (c *Calculator) attribute(order InvoicedOrder) (Calculation, bool) {
	switch {
	case order.SalesRepID != nil:
		return Calculation{OrderID: order.OrderID, SalesRepID: *order.SalesRepID, Type: TypeDirectSale}, true
	case order.AssignedRepID != nil:
		return Calculation{OrderID: order.OrderID, SalesRepID: *order.AssignedRepID, Type: TypeAssignedCustomer}, true
	default:
		return Calculation{}, false
	}
}

// Approve transitions the given calculated rows to approved and reports how
// many actually moved. Rows in other states are ignored.
func (c *Calculator) Approve(ctx context.Context, ids []int64, approverID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return c.repo.ApproveCalculations(ctx, ids, approverID)
}
