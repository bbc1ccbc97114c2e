package mealprep

import (
	"context"
	"testing"
	"time"

	"mealbox-service/internal/domain/mealprep"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSubscriptionSource struct {
	details []mealprep.ActiveSubscriptionDetail
	err     error
}

func (m *mockSubscriptionSource) ListActiveDetails(ctx context.Context) ([]mealprep.ActiveSubscriptionDetail, error) {
	return m.details, m.err
}

type mockSkipSource struct {
	skipped map[int64]bool
}

func (m *mockSkipSource) SkippedSubscriptionsForDate(ctx context.Context, date time.Time) (map[int64]bool, error) {
	if m.skipped == nil {
		return map[int64]bool{}, nil
	}
	return m.skipped, nil
}

// Monday, 2026-08-31: weekday index 0.
var monday = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func detail(id int64, planID int64, planName, days string) mealprep.ActiveSubscriptionDetail {
	return mealprep.ActiveSubscriptionDetail{
		SubscriptionID: id,
		UserID:         id,
		CustomerName:   "Customer",
		MealPlanID:     planID,
		PlanName:       planName,
		DeliveryDays:   days,
		HasLunch:       true,
	}
}

func newAggregator(subs *mockSubscriptionSource, skips *mockSkipSource) *AggregatorService {
	return NewAggregatorService(subs, skips, nil, zap.NewNop())
}

func TestAggregateForDateCounts(t *testing.T) {
	veg := detail(1, 10, "Veg Classic", "0,2,4")
	veg.PlanIsVeg = true
	veg.HasBreakfast = true

	nonVeg := detail(2, 20, "Protein Box", "0,1,2,3,4")
	nonVeg.HasDinner = true

	weekendOnly := detail(3, 10, "Veg Classic", "5,6")

	subs := &mockSubscriptionSource{details: []mealprep.ActiveSubscriptionDetail{veg, nonVeg, weekendOnly}}
	svc := newAggregator(subs, &mockSkipSource{})

	report, err := svc.AggregateForDate(context.Background(), monday, false)
	require.NoError(t, err)

	assert.Equal(t, "2026-08-31", report.Date)
	assert.Equal(t, 2, report.TotalMeals)
	assert.Equal(t, 0, report.SkippedBadData)
	require.Len(t, report.Plans, 2)

	vegPlan := report.Plans[0]
	assert.Equal(t, int64(10), vegPlan.MealPlanID)
	assert.Equal(t, 1, vegPlan.VegCount)
	assert.Equal(t, 0, vegPlan.NonVegCount)
	assert.Equal(t, 1, vegPlan.BreakfastCount)
	assert.Equal(t, 1, vegPlan.LunchCount)
	assert.Equal(t, 1, vegPlan.TotalCount)
	require.Len(t, vegPlan.Customers, 1)

	proteinPlan := report.Plans[1]
	assert.Equal(t, int64(20), proteinPlan.MealPlanID)
	assert.Equal(t, 1, proteinPlan.NonVegCount)
	assert.Equal(t, 1, proteinPlan.DinnerCount)
}

func TestAggregateForDateExcludesSkipped(t *testing.T) {
	subs := &mockSubscriptionSource{details: []mealprep.ActiveSubscriptionDetail{
		detail(1, 10, "Veg Classic", "0"),
		detail(2, 10, "Veg Classic", "0"),
	}}
	skips := &mockSkipSource{skipped: map[int64]bool{1: true}}
	svc := newAggregator(subs, skips)

	report, err := svc.AggregateForDate(context.Background(), monday, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalMeals)
	require.Len(t, report.Plans, 1)
	require.Len(t, report.Plans[0].Customers, 1)
	assert.Equal(t, int64(2), report.Plans[0].Customers[0].SubscriptionID)
}

func TestAggregateForDateFailSoftOnCorruptData(t *testing.T) {
	good := detail(1, 10, "Veg Classic", "0")
	corrupt := detail(2, 10, "Veg Classic", "0,banana")
	alsoGood := detail(3, 20, "Protein Box", "0")

	subs := &mockSubscriptionSource{details: []mealprep.ActiveSubscriptionDetail{good, corrupt, alsoGood}}
	svc := newAggregator(subs, &mockSkipSource{})

	report, err := svc.AggregateForDate(context.Background(), monday, false)
	require.NoError(t, err)

	// One bad row must not take the whole report down.
	assert.Equal(t, 2, report.TotalMeals)
	assert.Equal(t, 1, report.SkippedBadData)
}

func TestAggregateForDateVegOverride(t *testing.T) {
	// Plan is non-veg, but Mondays are overridden to veg.
	overridden := detail(1, 10, "Flex Plan", "0,1")
	overridden.VegDays = "0"

	// Corrupt override falls back to the plan flag.
	corruptOverride := detail(2, 10, "Flex Plan", "0")
	corruptOverride.VegDays = "xyz"
	corruptOverride.PlanIsVeg = true

	subs := &mockSubscriptionSource{details: []mealprep.ActiveSubscriptionDetail{overridden, corruptOverride}}
	svc := newAggregator(subs, &mockSkipSource{})

	report, err := svc.AggregateForDate(context.Background(), monday, false)
	require.NoError(t, err)

	require.Len(t, report.Plans, 1)
	plan := report.Plans[0]
	assert.Equal(t, 2, plan.VegCount)
	assert.Equal(t, 0, plan.NonVegCount)
	assert.Equal(t, 0, report.SkippedBadData)

	// Tuesday: the override does not list weekday 1, so the first
	// subscription counts as non-veg again.
	tuesday := monday.AddDate(0, 0, 1)
	report, err = svc.AggregateForDate(context.Background(), tuesday, false)
	require.NoError(t, err)
	require.Len(t, report.Plans, 1)
	assert.Equal(t, 0, report.Plans[0].VegCount)
	assert.Equal(t, 1, report.Plans[0].NonVegCount)
}

func TestAggregateForDateDeterministicOrder(t *testing.T) {
	details := []mealprep.ActiveSubscriptionDetail{
		detail(1, 30, "Plan C", "0"),
		detail(2, 10, "Plan A", "0"),
		detail(3, 30, "Plan C", "0"),
		detail(4, 20, "Plan B", "0"),
	}
	subs := &mockSubscriptionSource{details: details}
	svc := newAggregator(subs, &mockSkipSource{})

	first, err := svc.AggregateForDate(context.Background(), monday, false)
	require.NoError(t, err)
	second, err := svc.AggregateForDate(context.Background(), monday, false)
	require.NoError(t, err)

	// Plans appear in first-seen order over id-ordered subscriptions, and
	// repeated runs produce the same layout.
	require.Len(t, first.Plans, 3)
	assert.Equal(t, int64(30), first.Plans[0].MealPlanID)
	assert.Equal(t, int64(10), first.Plans[1].MealPlanID)
	assert.Equal(t, int64(20), first.Plans[2].MealPlanID)
	for i := range first.Plans {
		assert.Equal(t, first.Plans[i].MealPlanID, second.Plans[i].MealPlanID)
		assert.Equal(t, first.Plans[i].TotalCount, second.Plans[i].TotalCount)
	}

	assert.Equal(t, 2, first.Plans[0].TotalCount)
	assert.Equal(t, []int64{1, 3}, []int64{
		first.Plans[0].Customers[0].SubscriptionID,
		first.Plans[0].Customers[1].SubscriptionID,
	})
}

func TestAggregateForDateEmpty(t *testing.T) {
	svc := newAggregator(&mockSubscriptionSource{}, &mockSkipSource{})

	report, err := svc.AggregateForDate(context.Background(), monday, false)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalMeals)
	assert.NotNil(t, report.Plans)
	assert.Empty(t, report.Plans)
}
