package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/siamcraft/mfginv_backend/utils"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTotalLandedCost_Imported(t *testing.T) {
	// (10 x 100 + 0) x 5 + 50 = 5050
	pool := StockPool{
		Variant:             StockPoolVariantImported,
		Quantity:            100,
		UnitPriceYuan:       dec("10"),
		ExchangeRate:        dec("5"),
		ShippingWithinChina: decimal.Zero,
		ShippingChinaToThai: dec("50"),
	}
	if got := pool.TotalLandedCost(); !got.Equal(dec("5050")) {
		t.Fatalf("TotalLandedCost = %s, want 5050", got)
	}
	if got := pool.UnitCost(); !got.Equal(dec("50.50")) {
		t.Fatalf("UnitCost = %s, want 50.50", got)
	}
}

func TestTotalLandedCost_ImportedWithInCountryShipping(t *testing.T) {
	// (2.5 x 40 + 60) x 4.8 + 120 = 888
	pool := StockPool{
		Variant:             StockPoolVariantImported,
		Quantity:            40,
		UnitPriceYuan:       dec("2.5"),
		ExchangeRate:        dec("4.8"),
		ShippingWithinChina: dec("60"),
		ShippingChinaToThai: dec("120"),
	}
	if got := pool.TotalLandedCost(); !got.Equal(dec("888")) {
		t.Fatalf("TotalLandedCost = %s, want 888", got)
	}
	// 888 / 40 = 22.20
	if got := pool.UnitCost(); !got.Equal(dec("22.2")) {
		t.Fatalf("UnitCost = %s, want 22.2", got)
	}
}

func TestTotalLandedCost_Domestic(t *testing.T) {
	pool := StockPool{
		Variant:      StockPoolVariantDomestic,
		Quantity:     20,
		PriceTotal:   dec("1000"),
		ShippingCost: dec("100"),
	}
	if got := pool.TotalLandedCost(); !got.Equal(dec("1100")) {
		t.Fatalf("TotalLandedCost = %s, want 1100", got)
	}
	if got := pool.UnitCost(); !got.Equal(dec("55")) {
		t.Fatalf("UnitCost = %s, want 55", got)
	}
}

func TestTotalLandedCost_BufferApplied(t *testing.T) {
	pool := StockPool{
		Variant:       StockPoolVariantDomestic,
		Quantity:      10,
		PriceTotal:    dec("1000"),
		ShippingCost:  decimal.Zero,
		HasBuffer:     utils.NewTrue(),
		BufferPercent: dec("10"),
	}
	if got := pool.TotalLandedCost(); !got.Equal(dec("1100")) {
		t.Fatalf("TotalLandedCost with 10%% buffer = %s, want 1100", got)
	}

	// buffer flag off: percent is ignored even when set
	pool.HasBuffer = utils.NewFalse()
	if got := pool.TotalLandedCost(); !got.Equal(dec("1000")) {
		t.Fatalf("TotalLandedCost without buffer = %s, want 1000", got)
	}
}

func TestTotalLandedCost_RoundsHalfUp(t *testing.T) {
	// 100.005 rounds to 100.01 at scale 2
	pool := StockPool{
		Variant:      StockPoolVariantDomestic,
		Quantity:     1,
		PriceTotal:   dec("100.005"),
		ShippingCost: decimal.Zero,
	}
	if got := pool.TotalLandedCost(); !got.Equal(dec("100.01")) {
		t.Fatalf("TotalLandedCost = %s, want 100.01", got)
	}
}

func TestUnitCost_ZeroQuantity(t *testing.T) {
	pool := StockPool{
		Variant:    StockPoolVariantDomestic,
		Quantity:   0,
		PriceTotal: dec("500"),
	}
	if got := pool.UnitCost(); !got.IsZero() {
		t.Fatalf("UnitCost with zero quantity = %s, want 0", got)
	}
}

func TestCostSnapshot_TakesPrecedenceOverLiveFields(t *testing.T) {
	pool := StockPool{
		Variant:           StockPoolVariantImported,
		Quantity:          100,
		UnitPriceYuan:     dec("999"), // live fields changed after import
		ExchangeRate:      dec("9"),
		TotalCostAtImport: dec("5050"),
		UnitCostAtImport:  dec("50.50"),
	}
	if got := pool.TotalLandedCost(); !got.Equal(dec("5050")) {
		t.Fatalf("TotalLandedCost = %s, want frozen 5050", got)
	}
	if got := pool.UnitCost(); !got.Equal(dec("50.50")) {
		t.Fatalf("UnitCost = %s, want frozen 50.50", got)
	}
}

func TestTotalLandedCost_UnknownVariantIsZero(t *testing.T) {
	pool := StockPool{
		Variant:    StockPoolVariant("BOGUS"),
		Quantity:   10,
		PriceTotal: dec("100"),
	}
	if got := pool.TotalLandedCost(); !got.IsZero() {
		t.Fatalf("TotalLandedCost for unknown variant = %s, want 0", got)
	}
}
