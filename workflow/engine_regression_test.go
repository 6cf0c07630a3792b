package workflow_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/models"
	"github.com/siamcraft/mfginv_backend/utils"
	"github.com/siamcraft/mfginv_backend/workflow"
)

// NOTE: These tests need a real MySQL (optimistic-locking semantics depend on
// conditional UPDATE + RowsAffected) and Redis. They run only with
// INTEGRATION_TESTS=1 and docker available.

func setupIntegration(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "mfginv_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	businessId := fmt.Sprintf("biz-%d", time.Now().UnixNano())
	ctx := utils.SetBusinessIdInContext(context.Background(), businessId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	return ctx
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

// creates a domestic pool with a given quantity and zero pricing (the cost
// snapshot is not frozen until the pool is first priced)
func createUnpricedPool(t *testing.T, ctx context.Context, name string, quantity int) *models.StockPool {
	t.Helper()
	pool, err := models.CreateStockPool(ctx, &models.NewStockPool{
		Name:     name,
		Variant:  models.StockPoolVariantDomestic,
		Quantity: quantity,
		Unit:     "pcs",
	})
	if err != nil {
		t.Fatalf("CreateStockPool(%s): %v", name, err)
	}
	return pool
}

func createProductWithBOM(t *testing.T, ctx context.Context, sku string, poolId int, required string) *models.Product {
	t.Helper()
	logger := config.GetLogger()
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name: "Product " + sku,
		Sku:  sku,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", sku, err)
	}
	if _, err := workflow.CreateBOMEntry(ctx, logger, &models.NewBOMEntry{
		ProductId:        product.ID,
		StockPoolId:      poolId,
		RequiredQuantity: mustDec(t, required),
		Unit:             "pcs",
	}); err != nil {
		t.Fatalf("CreateBOMEntry: %v", err)
	}
	return product
}

func createOrderWithLine(t *testing.T, ctx context.Context, productId int, qty int) *models.Order {
	t.Helper()
	order, err := models.CreateOrder(ctx, &models.NewOrder{
		OrderNumber: fmt.Sprintf("ORD-%d", time.Now().UnixNano()),
		Customer:    "Test Customer",
		OrderDate:   time.Now().UTC(),
		Lines: []models.NewOrderLine{
			{ProductId: productId, Quantity: qty},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func poolQuantity(t *testing.T, ctx context.Context, poolId int) int {
	t.Helper()
	pool, err := models.GetStockPool(ctx, poolId)
	if err != nil {
		t.Fatalf("GetStockPool: %v", err)
	}
	return pool.Quantity
}

func TestDeductOrderLine_InsufficientStock_LeavesQuantityUnchanged(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()

	pool := createUnpricedPool(t, ctx, "Scarce Pool", 8)
	product := createProductWithBOM(t, ctx, "SCARCE-1", pool.ID, "1")
	order := createOrderWithLine(t, ctx, product.ID, 10) // needs 10, only 8

	result, err := workflow.DeductOrderLine(ctx, logger, order.Lines[0].ID)
	if err != nil {
		t.Fatalf("DeductOrderLine: %v", err)
	}
	if result.Status != models.DeductionStatusFailed {
		t.Fatalf("status = %s, want FAILED", result.Status)
	}
	if len(result.Ingredients) != 1 || result.Ingredients[0].Outcome != models.IngredientOutcomeInsufficientStock {
		t.Fatalf("ingredient report = %+v, want one INSUFFICIENT_STOCK entry", result.Ingredients)
	}
	if got := poolQuantity(t, ctx, pool.ID); got != 8 {
		t.Fatalf("pool quantity = %d, want unchanged 8", got)
	}
}

func TestDeductRestore_RoundTrip(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()

	pool := createUnpricedPool(t, ctx, "Round Trip Pool", 50)
	product := createProductWithBOM(t, ctx, "RT-1", pool.ID, "3")
	order := createOrderWithLine(t, ctx, product.ID, 4) // needs 12

	result, err := workflow.DeductOrderLine(ctx, logger, order.Lines[0].ID)
	if err != nil {
		t.Fatalf("DeductOrderLine: %v", err)
	}
	if result.Status != models.DeductionStatusCompleted {
		t.Fatalf("deduct status = %s, want COMPLETED", result.Status)
	}
	if got := poolQuantity(t, ctx, pool.ID); got != 38 {
		t.Fatalf("pool quantity after deduct = %d, want 38", got)
	}

	restored, err := workflow.RestoreOrderLine(ctx, logger, order.Lines[0].ID)
	if err != nil {
		t.Fatalf("RestoreOrderLine: %v", err)
	}
	if restored.Status != models.DeductionStatusPending {
		t.Fatalf("restore status = %s, want PENDING", restored.Status)
	}
	if got := poolQuantity(t, ctx, pool.ID); got != 50 {
		t.Fatalf("pool quantity after restore = %d, want 50", got)
	}

	// restoring a non-COMPLETED line is rejected
	if _, err := workflow.RestoreOrderLine(ctx, logger, order.Lines[0].ID); err == nil {
		t.Fatal("second restore should be rejected (line is PENDING)")
	}
}

func TestDeductOrderLine_SequentialUntilExhausted(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()

	pool := createUnpricedPool(t, ctx, "Exhaustion Pool", 10)
	product := createProductWithBOM(t, ctx, "EXH-1", pool.ID, "3")

	completed, failed := 0, 0
	for i := 0; i < 5; i++ {
		order := createOrderWithLine(t, ctx, product.ID, 1) // needs 3 each
		result, err := workflow.DeductOrderLine(ctx, logger, order.Lines[0].ID)
		if err != nil {
			t.Fatalf("DeductOrderLine #%d: %v", i, err)
		}
		switch result.Status {
		case models.DeductionStatusCompleted:
			completed++
		case models.DeductionStatusFailed:
			failed++
		}
	}
	if completed != 3 || failed != 2 {
		t.Fatalf("completed/failed = %d/%d, want 3/2", completed, failed)
	}
	if got := poolQuantity(t, ctx, pool.ID); got != 1 {
		t.Fatalf("final pool quantity = %d, want 1", got)
	}
}

func TestDeductOrderLine_ConcurrentNeverOversells(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()

	pool := createUnpricedPool(t, ctx, "Concurrent Pool", 10)
	product := createProductWithBOM(t, ctx, "CONC-1", pool.ID, "3")

	lineIds := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		order := createOrderWithLine(t, ctx, product.ID, 1)
		lineIds = append(lineIds, order.Lines[0].ID)
	}

	var wg sync.WaitGroup
	results := make([]*workflow.DeductionResult, len(lineIds))
	for i, lineId := range lineIds {
		wg.Add(1)
		go func(i, lineId int) {
			defer wg.Done()
			result, err := workflow.DeductOrderLine(ctx, logger, lineId)
			if err != nil {
				t.Errorf("DeductOrderLine(%d): %v", lineId, err)
				return
			}
			results[i] = result
		}(i, lineId)
	}
	wg.Wait()

	completed := 0
	for _, result := range results {
		if result != nil && result.Status == models.DeductionStatusCompleted {
			completed++
		}
	}

	// The invariant under contention: quantity never goes negative and every
	// completed deduction is accounted for. Bounded retry means fewer than 3
	// may complete (CAS conflicts), but never more.
	final := poolQuantity(t, ctx, pool.ID)
	if final < 0 {
		t.Fatalf("pool quantity went negative: %d", final)
	}
	if completed > 3 {
		t.Fatalf("completed = %d deductions of 3 from a pool of 10", completed)
	}
	if want := 10 - 3*completed; final != want {
		t.Fatalf("final quantity = %d, want %d (10 - 3x%d)", final, want, completed)
	}
	if completed == 0 {
		t.Fatal("no deduction completed at all")
	}
}

func TestRecomputeProductCost_PropagatesPricingChange(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()

	pool := createUnpricedPool(t, ctx, "Pricing Pool", 20)
	product := createProductWithBOM(t, ctx, "PRC-1", pool.ID, "2")

	// pool has no pricing yet: calculated cost must be zero
	refreshed, err := models.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !refreshed.CalculatedCost.IsZero() {
		t.Fatalf("calculated cost before pricing = %s, want 0", refreshed.CalculatedCost)
	}

	price := mustDec(t, "1000")
	shipping := mustDec(t, "100")
	_, recomputed, err := workflow.ApplyStockPoolPricing(ctx, logger, pool.ID, &models.StockPoolPricingInput{
		PriceTotal:   &price,
		ShippingCost: &shipping,
	})
	if err != nil {
		t.Fatalf("ApplyStockPoolPricing: %v", err)
	}
	if len(recomputed) != 1 || recomputed[0] != product.ID {
		t.Fatalf("recomputed products = %v, want [%d]", recomputed, product.ID)
	}

	// unit cost 1100/20 = 55, x required 2 = 110
	refreshed, err = models.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !refreshed.CalculatedCost.Equal(mustDec(t, "110")) {
		t.Fatalf("calculated cost = %s, want 110", refreshed.CalculatedCost)
	}

	// recomputing again with no intervening BOM/stock change is idempotent
	again, err := workflow.RecomputeProductCost(ctx, logger, product.ID)
	if err != nil {
		t.Fatalf("second RecomputeProductCost: %v", err)
	}
	if !again.CalculatedCost.Equal(refreshed.CalculatedCost) {
		t.Fatalf("second recompute changed cost: %s -> %s", refreshed.CalculatedCost, again.CalculatedCost)
	}
}

func TestUpdateStockPoolPricing_FreezesFirstPricingOnly(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)

	pool := createUnpricedPool(t, ctx, "Late Priced Pool", 20)

	price := mustDec(t, "1000")
	shipping := mustDec(t, "100")
	priced, err := models.UpdateStockPoolPricing(ctx, pool.ID, &models.StockPoolPricingInput{
		PriceTotal:   &price,
		ShippingCost: &shipping,
	})
	if err != nil {
		t.Fatalf("UpdateStockPoolPricing: %v", err)
	}
	// 1100 / 20 = 55, frozen by the first pricing
	if !priced.UnitCostAtImport.Equal(mustDec(t, "55")) {
		t.Fatalf("unit cost at import = %s, want 55", priced.UnitCostAtImport)
	}
	if !priced.TotalCostAtImport.Equal(mustDec(t, "1100")) {
		t.Fatalf("total cost at import = %s, want 1100", priced.TotalCostAtImport)
	}

	// a later price edit must not reach the frozen snapshot
	newPrice := mustDec(t, "9000")
	repriced, err := models.UpdateStockPoolPricing(ctx, pool.ID, &models.StockPoolPricingInput{
		PriceTotal: &newPrice,
	})
	if err != nil {
		t.Fatalf("second UpdateStockPoolPricing: %v", err)
	}
	if !repriced.UnitCostAtImport.Equal(mustDec(t, "55")) {
		t.Fatalf("unit cost at import after repricing = %s, want unchanged 55", repriced.UnitCostAtImport)
	}
	if !repriced.UnitCost().Equal(mustDec(t, "55")) {
		t.Fatalf("unit cost after repricing = %s, want frozen 55", repriced.UnitCost())
	}
}

func TestDeductOrderLine_ConcurrentSameLineDeductsOnce(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()

	pool := createUnpricedPool(t, ctx, "Same Line Pool", 100)
	product := createProductWithBOM(t, ctx, "SAME-1", pool.ID, "2")
	order := createOrderWithLine(t, ctx, product.ID, 5) // needs 10
	lineId := order.Lines[0].ID

	var wg sync.WaitGroup
	completed := make([]bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := workflow.DeductOrderLine(ctx, logger, lineId)
			if err == nil && result.Status == models.DeductionStatusCompleted {
				completed[i] = true
			}
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, ok := range completed {
		if ok {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("completed deductions on the same line = %d, want exactly 1", successes)
	}
	if got := poolQuantity(t, ctx, pool.ID); got != 90 {
		t.Fatalf("pool quantity = %d, want 90 (stock deducted exactly once)", got)
	}
}

func TestRestoreOrderLine_ConcurrentRestoresCreditOnce(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()

	pool := createUnpricedPool(t, ctx, "Restore Race Pool", 100)
	product := createProductWithBOM(t, ctx, "RST-1", pool.ID, "2")
	order := createOrderWithLine(t, ctx, product.ID, 5) // needs 10
	lineId := order.Lines[0].ID

	result, err := workflow.DeductOrderLine(ctx, logger, lineId)
	if err != nil || result.Status != models.DeductionStatusCompleted {
		t.Fatalf("DeductOrderLine = %+v, %v, want COMPLETED", result, err)
	}
	if got := poolQuantity(t, ctx, pool.ID); got != 90 {
		t.Fatalf("pool quantity after deduct = %d, want 90", got)
	}

	var wg sync.WaitGroup
	restored := make([]bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := workflow.RestoreOrderLine(ctx, logger, lineId)
			if err == nil && result.Status == models.DeductionStatusPending {
				restored[i] = true
			}
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, ok := range restored {
		if ok {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("successful restores on the same line = %d, want exactly 1", successes)
	}
	if got := poolQuantity(t, ctx, pool.ID); got != 100 {
		t.Fatalf("pool quantity = %d, want 100 (stock credited exactly once)", got)
	}
}

func TestCompleteStockLot_PostsAggregateCostOnce(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()
	businessId, _ := utils.GetBusinessIdFromContext(ctx)

	lot, err := models.CreateStockLot(ctx, &models.NewStockLot{
		LotNumber: fmt.Sprintf("LOT-%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("CreateStockLot: %v", err)
	}

	// member pool with a frozen landed cost of 5050
	if _, err := models.CreateStockPool(ctx, &models.NewStockPool{
		Name:                "Lot Member",
		Variant:             models.StockPoolVariantImported,
		Quantity:            100,
		StockLotId:          lot.ID,
		UnitPriceYuan:       mustDec(t, "10"),
		ExchangeRate:        mustDec(t, "5"),
		ShippingChinaToThai: mustDec(t, "50"),
	}); err != nil {
		t.Fatalf("CreateStockPool: %v", err)
	}

	// completing before arrival is rejected
	if _, err := workflow.CompleteStockLot(ctx, logger, lot.ID); err == nil {
		t.Fatal("CompleteStockLot should reject a PENDING lot")
	}

	if _, err := models.MarkStockLotArrived(ctx, lot.ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkStockLotArrived: %v", err)
	}

	done, err := workflow.CompleteStockLot(ctx, logger, lot.ID)
	if err != nil {
		t.Fatalf("CompleteStockLot: %v", err)
	}
	if done.Status != models.StockLotStatusCompleted {
		t.Fatalf("lot status = %s, want COMPLETED", done.Status)
	}
	if !done.TotalCost.Equal(mustDec(t, "5050")) {
		t.Fatalf("lot total cost = %s, want 5050", done.TotalCost)
	}

	// exactly one posting record, queued for the dispatcher
	db := config.GetDB()
	var records []models.FinancialPostingRecord
	if err := db.WithContext(ctx).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?",
			businessId, models.FinancialReferenceTypeStockLot, lot.ID).
		Find(&records).Error; err != nil {
		t.Fatalf("query posting records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("posting records = %d, want 1", len(records))
	}
	if records[0].PublishStatus != models.OutboxPublishStatusPending {
		t.Fatalf("publish status = %s, want PENDING", records[0].PublishStatus)
	}

	// completed lots are immutable
	if _, err := models.UpdateStockLot(ctx, lot.ID, &models.NewStockLot{LotNumber: "changed"}); err == nil {
		t.Fatal("UpdateStockLot should reject a COMPLETED lot")
	}
	if _, err := workflow.CompleteStockLot(ctx, logger, lot.ID); err == nil {
		t.Fatal("second CompleteStockLot should be rejected (no double posting)")
	}
}

func TestCalculateForecast_ExcludesCancelledOrders(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()

	pool := createUnpricedPool(t, ctx, "Forecast Pool", 100)
	product := createProductWithBOM(t, ctx, "FC-1", pool.ID, "1")

	// 90 units consumed inside the window
	active := createOrderWithLine(t, ctx, product.ID, 90)
	_ = active

	// cancelled demand must not count
	cancelled := createOrderWithLine(t, ctx, product.ID, 50)
	if _, err := models.CancelOrder(ctx, cancelled.ID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	forecast, err := workflow.CalculateForecast(ctx, logger, pool.ID, 90)
	if err != nil {
		t.Fatalf("CalculateForecast: %v", err)
	}
	if forecast.TotalUsage != 90 {
		t.Fatalf("total usage = %d, want 90 (cancelled order excluded)", forecast.TotalUsage)
	}
	// 90/90 = 1/day; 100 on hand -> 100 days -> LOW
	if forecast.AverageDailyUsage != 1 {
		t.Fatalf("daily usage = %d, want 1", forecast.AverageDailyUsage)
	}
	if forecast.DaysUntilStockOut != 100 {
		t.Fatalf("days until stock-out = %d, want 100", forecast.DaysUntilStockOut)
	}
	if forecast.Urgency != models.UrgencyLevelLow {
		t.Fatalf("urgency = %s, want LOW", forecast.Urgency)
	}
	// monthly 30 + daily 1 x (7 + 14) = 51
	if forecast.RecommendedOrderQuantity != 51 {
		t.Fatalf("recommended = %d, want 51", forecast.RecommendedOrderQuantity)
	}

	latest, err := models.GetLatestForecast(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetLatestForecast: %v", err)
	}
	if latest.ID != forecast.ID {
		t.Fatalf("latest forecast id = %d, want %d", latest.ID, forecast.ID)
	}
}

func TestCalculateForecast_NoDemandSentinel(t *testing.T) {
	setupIntegration(t)
	ctx := testContext(t)
	logger := config.GetLogger()

	pool := createUnpricedPool(t, ctx, "Idle Pool", 40)
	createProductWithBOM(t, ctx, "IDLE-1", pool.ID, "1")

	forecast, err := workflow.CalculateForecast(ctx, logger, pool.ID, 90)
	if err != nil {
		t.Fatalf("CalculateForecast: %v", err)
	}
	if forecast.DaysUntilStockOut != models.NoDemandSentinel {
		t.Fatalf("days until stock-out = %d, want sentinel %d", forecast.DaysUntilStockOut, models.NoDemandSentinel)
	}
	if forecast.Urgency != models.UrgencyLevelLow {
		t.Fatalf("urgency = %s, want LOW", forecast.Urgency)
	}
	if forecast.RecommendedOrderQuantity != 0 {
		t.Fatalf("recommended = %d, want 0", forecast.RecommendedOrderQuantity)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("mfginv-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("mfginv-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=mfginv_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
