package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/siamcraft/mfginv_backend/models"
)

func TestClassifyUrgency_Boundaries(t *testing.T) {
	cases := []struct {
		days int
		want models.UrgencyLevel
	}{
		{0, models.UrgencyLevelCritical},
		{7, models.UrgencyLevelCritical},
		{8, models.UrgencyLevelHigh},
		{14, models.UrgencyLevelHigh},
		{15, models.UrgencyLevelMedium},
		{30, models.UrgencyLevelMedium},
		{31, models.UrgencyLevelLow},
		{models.NoDemandSentinel, models.UrgencyLevelLow},
	}
	for _, tc := range cases {
		if got := ClassifyUrgency(tc.days); got != tc.want {
			t.Errorf("ClassifyUrgency(%d) = %s, want %s", tc.days, got, tc.want)
		}
	}
}

func TestAverageUsage_FloorsIntegers(t *testing.T) {
	daily, weekly, monthly := AverageUsage(100, 90)
	// 100/90 floors to 1
	if daily != 1 || weekly != 7 || monthly != 30 {
		t.Fatalf("AverageUsage(100, 90) = %d/%d/%d, want 1/7/30", daily, weekly, monthly)
	}

	daily, weekly, monthly = AverageUsage(450, 90)
	if daily != 5 || weekly != 35 || monthly != 150 {
		t.Fatalf("AverageUsage(450, 90) = %d/%d/%d, want 5/35/150", daily, weekly, monthly)
	}
}

func TestAverageUsage_GuardsZeroElapsed(t *testing.T) {
	daily, _, _ := AverageUsage(10, 0)
	if daily != 10 {
		t.Fatalf("AverageUsage(10, 0) daily = %d, want 10 (elapsed clamped to 1)", daily)
	}
}

func TestDaysUntilStockOut(t *testing.T) {
	if got := DaysUntilStockOut(100, 5); got != 20 {
		t.Fatalf("DaysUntilStockOut(100, 5) = %d, want 20", got)
	}
	// floor, not round
	if got := DaysUntilStockOut(99, 5); got != 19 {
		t.Fatalf("DaysUntilStockOut(99, 5) = %d, want 19", got)
	}
	if got := DaysUntilStockOut(100, 0); got != models.NoDemandSentinel {
		t.Fatalf("DaysUntilStockOut with no demand = %d, want sentinel %d", got, models.NoDemandSentinel)
	}
}

func TestRecommendedOrderQuantity(t *testing.T) {
	// monthly 150 + daily 5 x (7 safety + 14 lead) = 255
	if got := RecommendedOrderQuantity(150, 5, 7, 14); got != 255 {
		t.Fatalf("RecommendedOrderQuantity = %d, want 255", got)
	}
	if got := RecommendedOrderQuantity(0, 0, 7, 14); got != 0 {
		t.Fatalf("RecommendedOrderQuantity with no demand = %d, want 0", got)
	}
}

func TestNeededQuantity_FloorsFractional(t *testing.T) {
	cases := []struct {
		orderQty int
		required string
		want     int
	}{
		{10, "1", 10},
		{10, "0.5", 5},
		{3, "0.5", 1},  // 1.5 floors to 1
		{7, "0.33", 2}, // 2.31 floors to 2
		{5, "2", 10},
		{0, "3", 0},
	}
	for _, tc := range cases {
		required, err := decimal.NewFromString(tc.required)
		if err != nil {
			t.Fatal(err)
		}
		if got := neededQuantity(tc.orderQty, required); got != tc.want {
			t.Errorf("neededQuantity(%d, %s) = %d, want %d", tc.orderQty, tc.required, got, tc.want)
		}
	}
}

func TestConsumedFromPool_FloorsPerEntry(t *testing.T) {
	half, err := decimal.NewFromString("0.5")
	if err != nil {
		t.Fatal(err)
	}
	third, err := decimal.NewFromString("0.33")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		orderQty     int
		requirements []decimal.Decimal
		want         int
	}{
		{10, []decimal.Decimal{decimal.NewFromInt(2)}, 20},
		// two fractional entries floor separately: 1 + 1, never floor(3x1.0) = 3
		{3, []decimal.Decimal{half, half}, 2},
		{7, []decimal.Decimal{third, third}, 4},
		{5, []decimal.Decimal{half, decimal.NewFromInt(1)}, 7},
		{4, nil, 0},
	}
	for _, tc := range cases {
		if got := consumedFromPool(tc.orderQty, tc.requirements); got != tc.want {
			t.Errorf("consumedFromPool(%d, %v) = %d, want %d", tc.orderQty, tc.requirements, got, tc.want)
		}
	}
}
