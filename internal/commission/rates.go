package commission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	rateCacheTTL    = 10 * time.Minute
	rateCachePrefix = "commission:rate:"
)

// Resolver answers "what rate applies to this rep, type and date". A
// rep-specific override wins over the company default; when neither exists
// the hard fallback of 4.00% applies. Resolved rates are cached briefly in
// redis and concurrent lookups for the same key are collapsed.
type Resolver struct {
	repo  Repository
	cache *redis.Client
	group singleflight.Group
}

// NewResolver builds a Resolver. cache may be nil to disable caching.
func NewResolver(repo Repository, cache *redis.Client) *Resolver {
	return &Resolver{repo: repo, cache: cache}
}

// Resolve returns the effective rate percentage for the rep and type on the
// given date.
func (r *Resolver) Resolve(ctx context.Context, salesRepID int64, typ Type, asOf time.Time) (float64, error) {
	if !typ.Valid() {
		return 0, ErrUnknownType
	}

	// Rate windows are day-granular while invoices carry full timestamps;
	// drop the time of day so a mid-day lookup still matches the window
	// covering that calendar day.
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	key := cacheKey(salesRepID, typ, asOf)
	if r.cache != nil {
		if v, err := r.cache.Get(ctx, key).Result(); err == nil {
			if rate, perr := strconv.ParseFloat(v, 64); perr == nil {
				return rate, nil
			}
		}
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		rate, err := r.lookup(ctx, salesRepID, typ, asOf)
		if err != nil {
			return 0.0, err
		}
		if r.cache != nil {
			_ = r.cache.Set(ctx, key, strconv.FormatFloat(rate, 'f', -1, 64), rateCacheTTL).Err()
		}
		return rate, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (r *Resolver) lookup(ctx context.Context, salesRepID int64, typ Type, asOf time.Time) (float64, error) {
	override, err := r.repo.ActiveRate(ctx, &salesRepID, typ, asOf)
	if err == nil {
		return override.RatePercentage, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	def, err := r.repo.ActiveRate(ctx, nil, typ, asOf)
	if err == nil {
		return def.RatePercentage, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	return DefaultRatePercent, nil
}

// SetRate records a new rate effective from the given date, closing the
// scope's previous open-ended rate at the day before so exactly one rate is
// active at any time. Runs in one transaction.
func (r *Resolver) SetRate(ctx context.Context, rate Rate) (int64, error) {
	if !rate.Type.Valid() {
		return 0, ErrUnknownType
	}
	if rate.RatePercentage < 0 || rate.RatePercentage > 100 {
		return 0, fmt.Errorf("commission: rate %.2f out of range", rate.RatePercentage)
	}

	var id int64
	err := r.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		until := rate.EffectiveFrom.AddDate(0, 0, -1)
		if err := repo.CloseOpenEndedRate(ctx, rate.SalesRepID, rate.Type, until); err != nil {
			return err
		}
		var err error
		id, err = repo.InsertRate(ctx, rate)
		return err
	})
	if err != nil {
		return 0, err
	}

	// Cached lookups may be stale for up to the TTL; acceptable because rate
	// changes take effect on a date boundary, not mid-request.
	return id, nil
}

func cacheKey(salesRepID int64, typ Type, asOf time.Time) string {
	return rateCachePrefix + strconv.FormatInt(salesRepID, 10) + ":" + string(typ) + ":" + asOf.Format("2006-01-02")
}
