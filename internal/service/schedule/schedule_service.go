// internal/service/schedule/schedule_service.go
package schedule

import (
	"context"
	"fmt"
	"time"

	"mealbox-service/internal/domain/delivery"
	"mealbox-service/internal/domain/subscription"
	xerrors "mealbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SkipStore is the per-date skip registry.
type SkipStore interface {
	IsSkipped(ctx context.Context, subscriptionID int64, date time.Time) (bool, error)
	InsertTx(ctx context.Context, tx pgx.Tx, subscriptionID int64, date time.Time) (bool, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, subscriptionID int64, date time.Time) (bool, error)
	SkippedDatesInRange(ctx context.Context, subscriptionID int64, from, to time.Time) (map[string]bool, error)
}

// DeliveryStore is the slice of the delivery repository the scheduler needs.
type DeliveryStore interface {
	CancelPendingForDateTx(ctx context.Context, tx pgx.Tx, subscriptionID int64, date time.Time) (bool, error)
}

type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// ScheduleService computes upcoming delivery dates for a subscription and
// manages skip/unskip decisions under the daily cutoff rule.
type ScheduleService struct {
	skips      SkipStore
	deliveries DeliveryStore
	db         TxBeginner
	cutoffHour int
	logger     *zap.Logger

	now func() time.Time
}

func NewScheduleService(skips SkipStore, deliveries DeliveryStore, db TxBeginner, cutoffHour int, logger *zap.Logger) *ScheduleService {
	if cutoffHour <= 0 || cutoffHour > 23 {
		cutoffHour = 11
	}
	return &ScheduleService{
		skips:      skips,
		deliveries: deliveries,
		db:         db,
		cutoffHour: cutoffHour,
		logger:     logger,
		now:        time.Now,
	}
}

// UpcomingDeliveries walks the lookahead window day by day and returns every
// date whose weekday is in the subscription's delivery-day set, ascending.
// Today stays in the window after the cutoff (the kitchen will still deliver)
// but is no longer skippable; all future dates are always skippable.
func (s *ScheduleService) UpcomingDeliveries(ctx context.Context, sub *subscription.Subscription, daysAhead int) ([]delivery.DeliveryDay, error) {
	if daysAhead <= 0 {
		return []delivery.DeliveryDay{}, nil
	}

	days, err := subscription.ParseDeliveryDays(sub.DeliveryDays)
	if err != nil {
		return nil, fmt.Errorf("subscription %d has invalid delivery days: %w", sub.ID, err)
	}
	daySet := make(map[int]bool, len(days))
	for _, d := range days {
		daySet[d] = true
	}

	now := s.now()
	today := dateOnly(now)
	cutoffPassedToday := now.Hour() >= s.cutoffHour

	skipped, err := s.skips.SkippedDatesInRange(ctx, sub.ID, today, today.AddDate(0, 0, daysAhead-1))
	if err != nil {
		return nil, err
	}

	result := make([]delivery.DeliveryDay, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		date := today.AddDate(0, 0, i)
		if !daySet[subscription.WeekdayIndex(date)] {
			continue
		}

		isToday := i == 0
		isSkipped := skipped[date.Format("2006-01-02")]
		cutoffPassed := isToday && cutoffPassedToday
		result = append(result, delivery.DeliveryDay{
			Date:         date,
			IsSkipped:    isSkipped,
			CanSkip:      !isSkipped && !cutoffPassed,
			CutoffPassed: cutoffPassed,
		})
	}
	return result, nil
}

// IsSkipped reports whether a delivery date is skipped for the subscription.
func (s *ScheduleService) IsSkipped(ctx context.Context, subscriptionID int64, date time.Time) (bool, error) {
	return s.skips.IsSkipped(ctx, subscriptionID, dateOnly(date))
}

// Skip records a skip for the date. Skipping an already-skipped date is a
// no-op success. A pending materialized delivery for the date is cancelled in
// the same transaction.
func (s *ScheduleService) Skip(ctx context.Context, subscriptionID int64, date time.Time) error {
	date = dateOnly(date)
	if err := s.checkMutable(date); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := s.skips.InsertTx(ctx, tx, subscriptionID, date)
	if err != nil {
		return err
	}
	if inserted {
		cancelled, err := s.deliveries.CancelPendingForDateTx(ctx, tx, subscriptionID, date)
		if err != nil {
			return err
		}
		if cancelled {
			s.logger.Info("pending delivery cancelled by skip",
				zap.Int64("subscription_id", subscriptionID),
				zap.String("date", date.Format("2006-01-02")),
			)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Unskip removes a skip record. Unskipping a date that was never skipped
// returns ErrNotFound.
func (s *ScheduleService) Unskip(ctx context.Context, subscriptionID int64, date time.Time) error {
	date = dateOnly(date)
	if err := s.checkMutable(date); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deleted, err := s.skips.DeleteTx(ctx, tx, subscriptionID, date)
	if err != nil {
		return err
	}
	if !deleted {
		return xerrors.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// checkMutable enforces the cutoff rule: same-day changes close at the
// cutoff hour, and past dates are never mutable.
func (s *ScheduleService) checkMutable(date time.Time) error {
	now := s.now()
	today := dateOnly(now)

	if date.Before(today) {
		return fmt.Errorf("%w: cannot modify a past delivery date", xerrors.ErrInvalidInput)
	}
	if date.Equal(today) && now.Hour() >= s.cutoffHour {
		return xerrors.ErrCutoffPassed
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
