// internal/service/mealprep/aggregator_service.go
package mealprep

import (
	"context"
	"encoding/json"
	"time"

	"mealbox-service/internal/domain/mealprep"
	"mealbox-service/internal/domain/subscription"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "mealprep:"
	cacheTTL       = 5 * time.Minute
)

// SubscriptionSource supplies the aggregator's input rows.
type SubscriptionSource interface {
	ListActiveDetails(ctx context.Context) ([]mealprep.ActiveSubscriptionDetail, error)
}

// SkipSource reports which subscriptions skipped a date.
type SkipSource interface {
	SkippedSubscriptionsForDate(ctx context.Context, date time.Time) (map[int64]bool, error)
}

// AggregatorService rolls up how many meals of each plan variant the kitchen
// must prepare on a date.
type AggregatorService struct {
	subs   SubscriptionSource
	skips  SkipSource
	cache  *redis.Client // nil disables caching
	logger *zap.Logger
}

func NewAggregatorService(subs SubscriptionSource, skips SkipSource, cache *redis.Client, logger *zap.Logger) *AggregatorService {
	return &AggregatorService{subs: subs, skips: skips, cache: cache, logger: logger}
}

// AggregateForDate computes the kitchen report for a date. The result is
// deterministic: plans and customers appear in subscription-id iteration
// order. A subscription with unparsable delivery-day data is logged and
// excluded without aborting the rest.
func (s *AggregatorService) AggregateForDate(ctx context.Context, date time.Time, refresh bool) (*mealprep.PrepReport, error) {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dateKey := date.Format("2006-01-02")

	if s.cache != nil && !refresh {
		if cached, err := s.cache.Get(ctx, cacheKeyPrefix+dateKey).Bytes(); err == nil {
			var report mealprep.PrepReport
			if err := json.Unmarshal(cached, &report); err == nil {
				report.FromCache = true
				return &report, nil
			}
		}
	}

	details, err := s.subs.ListActiveDetails(ctx)
	if err != nil {
		return nil, err
	}
	skipped, err := s.skips.SkippedSubscriptionsForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	weekday := subscription.WeekdayIndex(date)
	report := &mealprep.PrepReport{
		Date:        dateKey,
		Plans:       []*mealprep.PlanPrep{},
		GeneratedAt: time.Now(),
	}
	planIndex := make(map[int64]*mealprep.PlanPrep)

	for _, d := range details {
		if skipped[d.SubscriptionID] {
			continue
		}

		days, err := subscription.ParseDeliveryDays(d.DeliveryDays)
		if err != nil {
			s.logger.Warn("excluding subscription with corrupt delivery days",
				zap.Int64("subscription_id", d.SubscriptionID),
				zap.String("delivery_days", d.DeliveryDays),
				zap.Error(err),
			)
			report.SkippedBadData++
			continue
		}
		if !containsDay(days, weekday) {
			continue
		}

		isVeg := s.classifyVeg(d, weekday)

		prep, ok := planIndex[d.MealPlanID]
		if !ok {
			prep = &mealprep.PlanPrep{MealPlanID: d.MealPlanID, PlanName: d.PlanName}
			planIndex[d.MealPlanID] = prep
			report.Plans = append(report.Plans, prep)
		}

		if isVeg {
			prep.VegCount++
		} else {
			prep.NonVegCount++
		}
		if d.HasBreakfast {
			prep.BreakfastCount++
		}
		if d.HasLunch {
			prep.LunchCount++
		}
		if d.HasDinner {
			prep.DinnerCount++
		}
		prep.TotalCount++
		report.TotalMeals++

		prep.Customers = append(prep.Customers, mealprep.CustomerPrep{
			SubscriptionID: d.SubscriptionID,
			CustomerName:   d.CustomerName,
			AddressLine:    d.AddressLine,
			City:           d.City,
			Pincode:        d.Pincode,
			IsVegetarian:   isVeg,
			HasBreakfast:   d.HasBreakfast,
			HasLunch:       d.HasLunch,
			HasDinner:      d.HasDinner,
		})
	}

	if s.cache != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, cacheKeyPrefix+dateKey, payload, cacheTTL).Err(); err != nil {
				s.logger.Warn("failed to cache meal prep report", zap.Error(err))
			}
		}
	}

	return report, nil
}

// classifyVeg applies the per-weekday veg override, falling back to the
// plan's global vegetarian flag. A corrupt override falls back rather than
// excluding the subscription.
func (s *AggregatorService) classifyVeg(d mealprep.ActiveSubscriptionDetail, weekday int) bool {
	if d.VegDays == "" {
		return d.PlanIsVeg
	}
	vegDays, err := subscription.ParseDeliveryDays(d.VegDays)
	if err != nil {
		s.logger.Warn("ignoring corrupt veg day override",
			zap.Int64("subscription_id", d.SubscriptionID),
			zap.String("veg_days", d.VegDays),
		)
		return d.PlanIsVeg
	}
	return containsDay(vegDays, weekday)
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
