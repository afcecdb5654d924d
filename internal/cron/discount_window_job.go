package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/pricing"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

const (
	defaultSweepLookback = 15 * time.Minute
	defaultSweepBatch    = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type discountWindowRepo interface {
	DiscountsCrossingWindow(ctx context.Context, from, to time.Time, limit int) ([]models.Discount, error)
}

type discountRepricer interface {
	RepriceDiscount(ctx context.Context, tx *gorm.DB, trigger pricing.Trigger, discountID uuid.UUID) (pricing.Summary, error)
}

// DiscountWindowJobParams configure the discount start/end sweep.
type DiscountWindowJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Repo     discountWindowRepo
	Repricer discountRepricer
	Lookback time.Duration
	Batch    int
}

// NewDiscountWindowJob builds the job that reprices variations of discounts whose
// start or end date passed within the lookback window. Overlapping windows are
// harmless since repricing is idempotent.
func NewDiscountWindowJob(params DiscountWindowJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if params.Repricer == nil {
		return nil, fmt.Errorf("repricer required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultSweepLookback
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &discountWindowJob{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		repricer: params.Repricer,
		lookback: lookback,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type discountWindowJob struct {
	logg     *logger.Logger
	db       txRunner
	repo     discountWindowRepo
	repricer discountRepricer
	lookback time.Duration
	batch    int
	now      func() time.Time
}

func (j *discountWindowJob) Name() string { return "discount-window-sweep" }

// Run reprices each crossing discount in its own transaction so one bad discount
// does not hold back the rest.
func (j *discountWindowJob) Run(ctx context.Context) error {
	to := j.now().UTC()
	from := to.Add(-j.lookback)
	discounts, err := j.repo.DiscountsCrossingWindow(ctx, from, to, j.batch)
	if err != nil {
		return fmt.Errorf("load crossing discounts: %w", err)
	}

	var (
		errs       error
		repriced   int
		variations int
		cartItems  int
	)
	for _, discount := range discounts {
		discountID := discount.ID
		var summary pricing.Summary
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			summary, err = j.repricer.RepriceDiscount(ctx, tx, pricing.TriggerSweep, discountID)
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("discount %s: %w", discountID, err))
			continue
		}
		repriced++
		variations += summary.Variations
		cartItems += summary.CartItems
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"window_from": from,
		"window_to":   to,
		"discounts":   len(discounts),
		"repriced":    repriced,
		"variations":  variations,
		"cart_items":  cartItems,
	})
	if errs != nil {
		j.logg.Warn(logCtx, fmt.Sprintf("discount sweep finished with %d failures", len(multierr.Errors(errs))))
		return errs
	}
	j.logg.Info(logCtx, "discount sweep complete")
	return nil
}
