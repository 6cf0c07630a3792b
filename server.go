package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/models"
	"github.com/siamcraft/mfginv_backend/utils"
	"github.com/siamcraft/mfginv_backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// requestContext stamps business id (and the System actor) onto the request
// context for the models/workflow layers.
func requestContext(c *gin.Context, businessId string) context.Context {
	ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "System")
	return ctx
}

func respondBindError(c *gin.Context, err error) {
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

type orderLineRequest struct {
	BusinessId  string `json:"business_id"`
	OrderLineId int    `json:"order_line_id"`
}

func (r *orderLineRequest) bind(c *gin.Context) bool {
	if err := c.ShouldBindJSON(r); err != nil {
		respondBindError(c, err)
		return false
	}
	if r.BusinessId == "" || r.OrderLineId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and order_line_id are required"})
		return false
	}
	return true
}

func deductOrderLineHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orderLineRequest
		if !req.bind(c) {
			return
		}
		ctx := requestContext(c, req.BusinessId)
		result, err := workflow.DeductOrderLine(ctx, logger, req.OrderLineId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func restoreOrderLineHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orderLineRequest
		if !req.bind(c) {
			return
		}
		ctx := requestContext(c, req.BusinessId)
		result, err := workflow.RestoreOrderLine(ctx, logger, req.OrderLineId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func checkAvailabilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orderLineRequest
		if !req.bind(c) {
			return
		}
		ctx := requestContext(c, req.BusinessId)
		available, err := workflow.CheckOrderLineAvailability(ctx, req.OrderLineId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order_line_id": req.OrderLineId,
			"available":     available,
		})
	}
}

type createOrderRequest struct {
	BusinessId string          `json:"business_id"`
	Order      models.NewOrder `json:"order"`
}

func createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id is required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		order, err := models.CreateOrder(ctx, &req.Order)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type cancelOrderRequest struct {
	BusinessId string `json:"business_id"`
	OrderId    int    `json:"order_id"`
}

func cancelOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cancelOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.OrderId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and order_id are required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		order, err := models.CancelOrder(ctx, req.OrderId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type createProductRequest struct {
	BusinessId string            `json:"business_id"`
	Product    models.NewProduct `json:"product"`
}

func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id is required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		product, err := models.CreateProduct(ctx, &req.Product)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

type updateProductRequest struct {
	BusinessId string            `json:"business_id"`
	ProductId  int               `json:"product_id"`
	Product    models.NewProduct `json:"product"`
}

func updateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.ProductId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and product_id are required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		product, err := models.UpdateProduct(ctx, req.ProductId, &req.Product)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

type recomputeProductRequest struct {
	BusinessId string `json:"business_id"`
	ProductId  int    `json:"product_id"`
}

func recomputeProductCostHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recomputeProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.ProductId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and product_id are required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		product, err := workflow.RecomputeProductCost(ctx, logger, req.ProductId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

type createStockPoolRequest struct {
	BusinessId string              `json:"business_id"`
	StockPool  models.NewStockPool `json:"stock_pool"`
}

func createStockPoolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createStockPoolRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id is required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		pool, err := models.CreateStockPool(ctx, &req.StockPool)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, pool)
	}
}

type stockPoolPricingRequest struct {
	BusinessId  string                       `json:"business_id"`
	StockPoolId int                          `json:"stock_pool_id"`
	Pricing     models.StockPoolPricingInput `json:"pricing"`
}

func stockPoolPricingHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockPoolPricingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.StockPoolId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and stock_pool_id are required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		pool, recomputed, err := workflow.ApplyStockPoolPricing(ctx, logger, req.StockPoolId, &req.Pricing)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"stock_pool":          pool,
			"recomputed_products": recomputed,
		})
	}
}

type stockPoolRequest struct {
	BusinessId  string `json:"business_id"`
	StockPoolId int    `json:"stock_pool_id"`
}

func recomputeByPoolHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockPoolRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.StockPoolId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and stock_pool_id are required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		recomputed, err := workflow.RecomputeAffectedByPool(ctx, logger, req.StockPoolId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"stock_pool_id":       req.StockPoolId,
			"recomputed_products": recomputed,
		})
	}
}

type bomEntryRequest struct {
	BusinessId string             `json:"business_id"`
	BOMEntryId int                `json:"bom_entry_id"`
	Entry      models.NewBOMEntry `json:"entry"`
}

func createBOMEntryHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bomEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id is required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		entry, err := workflow.CreateBOMEntry(ctx, logger, &req.Entry)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func updateBOMEntryHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bomEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.BOMEntryId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and bom_entry_id are required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		entry, err := workflow.UpdateBOMEntry(ctx, logger, req.BOMEntryId, &req.Entry)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

func deleteBOMEntryHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bomEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.BOMEntryId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and bom_entry_id are required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		entry, err := workflow.DeleteBOMEntry(ctx, logger, req.BOMEntryId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

type createStockLotRequest struct {
	BusinessId string             `json:"business_id"`
	Lot        models.NewStockLot `json:"lot"`
}

func createStockLotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createStockLotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id is required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		lot, err := models.CreateStockLot(ctx, &req.Lot)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, lot)
	}
}

type stockLotRequest struct {
	BusinessId  string     `json:"business_id"`
	StockLotId  int        `json:"stock_lot_id"`
	ArrivalDate *time.Time `json:"arrival_date"`
}

func (r *stockLotRequest) bind(c *gin.Context) bool {
	if err := c.ShouldBindJSON(r); err != nil {
		respondBindError(c, err)
		return false
	}
	if r.BusinessId == "" || r.StockLotId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and stock_lot_id are required"})
		return false
	}
	return true
}

func markStockLotArrivedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockLotRequest
		if !req.bind(c) {
			return
		}
		arrival := time.Now().UTC()
		if req.ArrivalDate != nil {
			arrival = *req.ArrivalDate
		}
		ctx := requestContext(c, req.BusinessId)
		lot, err := models.MarkStockLotArrived(ctx, req.StockLotId, arrival)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, lot)
	}
}

func completeStockLotHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockLotRequest
		if !req.bind(c) {
			return
		}
		ctx := requestContext(c, req.BusinessId)
		lot, err := workflow.CompleteStockLot(ctx, logger, req.StockLotId)
		if err != nil {
			respondError(c, err)
			return
		}
		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		c.JSON(http.StatusOK, gin.H{
			"lot":            lot,
			"correlation_id": cid,
		})
	}
}

func deleteStockLotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockLotRequest
		if !req.bind(c) {
			return
		}
		ctx := requestContext(c, req.BusinessId)
		lot, err := models.DeleteStockLot(ctx, req.StockLotId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, lot)
	}
}

type forecastRequest struct {
	BusinessId  string `json:"business_id"`
	StockPoolId int    `json:"stock_pool_id"`
	WindowDays  int    `json:"window_days"`
}

// runForecastHandler calculates one pool's forecast, or every active pool's
// when stock_pool_id is omitted.
func runForecastHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req forecastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id is required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)

		if req.StockPoolId > 0 {
			forecast, err := workflow.CalculateForecast(ctx, logger, req.StockPoolId, req.WindowDays)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, forecast)
			return
		}

		forecasts, err := workflow.CalculateAllForecasts(ctx, logger, req.WindowDays)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":     len(forecasts),
			"forecasts": forecasts,
		})
	}
}

func latestForecastHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req forecastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.StockPoolId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and stock_pool_id are required"})
			return
		}
		ctx := requestContext(c, req.BusinessId)
		forecast, err := models.GetLatestForecast(ctx, req.StockPoolId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, forecast)
	}
}

type outboxReplayRequest struct {
	BusinessId string `json:"business_id"`
	RecordId   int    `json:"record_id"`
}

// outboxReplayHandler re-queues a DEAD/FAILED posting record for publishing.
func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and record_id are required"})
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		now := time.Now().UTC()
		if err := db.WithContext(c.Request.Context()).
			Model(&models.FinancialPostingRecord{}).
			Where("id = ? AND business_id = ?", req.RecordId, req.BusinessId).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusFailed,
				"next_attempt_at":    &now,
				"locked_at":          nil,
				"locked_by":          nil,
				"last_publish_error": nil,
			}).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"business_id":     req.BusinessId,
			"record_id":       req.RecordId,
			"publish_status":  models.OutboxPublishStatusFailed,
			"next_attempt_at": now.Format(time.RFC3339Nano),
		})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS: require explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated) in production; allow all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	// Consumption engine.
	r.POST("/internal/order-lines/deduct", deductOrderLineHandler(logger))
	r.POST("/internal/order-lines/restore", restoreOrderLineHandler(logger))
	r.POST("/internal/order-lines/check-availability", checkAvailabilityHandler())
	r.POST("/internal/orders", createOrderHandler())
	r.POST("/internal/orders/cancel", cancelOrderHandler())
	// Cost propagation engine.
	r.POST("/internal/products", createProductHandler())
	r.POST("/internal/products/update", updateProductHandler())
	r.POST("/internal/products/recompute-cost", recomputeProductCostHandler(logger))
	r.POST("/internal/stock-pools", createStockPoolHandler())
	r.POST("/internal/stock-pools/pricing", stockPoolPricingHandler(logger))
	r.POST("/internal/stock-pools/recompute", recomputeByPoolHandler(logger))
	r.POST("/internal/bom-entries", createBOMEntryHandler(logger))
	r.POST("/internal/bom-entries/update", updateBOMEntryHandler(logger))
	r.POST("/internal/bom-entries/delete", deleteBOMEntryHandler(logger))
	// Lot lifecycle (completion posts the aggregate cost via the outbox).
	r.POST("/internal/stock-lots", createStockLotHandler())
	r.POST("/internal/stock-lots/arrive", markStockLotArrivedHandler())
	r.POST("/internal/stock-lots/complete", completeStockLotHandler(logger))
	r.POST("/internal/stock-lots/delete", deleteStockLotHandler())
	// Forecast engine (external schedulers also hit these).
	r.POST("/internal/forecasts/run", runForecastHandler(logger))
	r.POST("/internal/forecasts/latest", latestForecastHandler())
	// Ops tooling: replay outbox postings that were marked DEAD/FAILED.
	r.POST("/internal/ops/outbox/replay", outboxReplayHandler())
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow disabling migrations on
	// startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
