package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/models"
	"github.com/apexdental/practice_backend/sheetsync"
	"github.com/apexdental/practice_backend/utils"
)

var dbReady = false

func main() {
	logger := config.GetLogger()

	// Cloud Run sends traffic as soon as the port is open, so the
	// listener comes up first and the database connects behind it.
	go func() {
		config.ConnectDatabaseWithRetry()
		models.MigrateTable()
		dbReady = true
		config.ConnectRedisWithRetry()
	}()

	r := gin.Default()
	r.MaxMultipartMemory = 16 << 20

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Tenant-Id", "X-Correlation-Id")
	r.Use(cors.New(corsConfig))
	r.Use(correlationMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		if !dbReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sync := r.Group("/sync")
	{
		sync.POST("/ingest", sheetsync.IngestHandler)
		sync.POST("/ingest/workbook", sheetsync.WorkbookIngestHandler)
		sync.POST("/pubsub", sheetsync.PubSubPushHandler)
		sync.GET("/runs", sheetsync.RunsHandler)
		sync.GET("/runs/:id", sheetsync.RunDetailHandler)
	}

	r.POST("/metrics/aggregate", aggregateHandler)
	r.GET("/facts", factsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Infof("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatal(err)
	}
}

// correlationMiddleware threads a request id through the context so sync
// runs and log lines can be tied back to one inbound call.
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Correlation-Id", correlationId)
		c.Next()
	}
}

func aggregateHandler(c *gin.Context) {
	tenantId := c.GetHeader("X-Tenant-Id")
	if tenantId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Tenant-Id header is required"})
		return
	}

	var req models.AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := utils.SetTenantIdInContext(c.Request.Context(), tenantId)
	agg, err := models.AggregateMetrics(ctx, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agg)
}

func factsHandler(c *gin.Context) {
	tenantId := c.GetHeader("X-Tenant-Id")
	if tenantId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Tenant-Id header is required"})
		return
	}
	recordType := c.Query("recordType")
	if !models.IsValidRecordType(recordType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recordType must be financial, hygiene or provider-production"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := models.FactFilter{}
	if v := c.Query("locationId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "locationId must be an integer"})
			return
		}
		filter.LocationId = &id
	}
	if v := c.Query("providerId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "providerId must be an integer"})
			return
		}
		filter.ProviderId = &id
	}
	if v := c.Query("startDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "startDate must be YYYY-MM-DD"})
			return
		}
		filter.StartDate = &t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must be YYYY-MM-DD"})
			return
		}
		filter.EndDate = &t
	}

	ctx := utils.SetTenantIdInContext(c.Request.Context(), tenantId)

	var result interface{}
	var err error
	switch recordType {
	case models.RecordTypeFinancial:
		result, err = models.PaginateFinancialFacts(ctx, filter, page, limit)
	case models.RecordTypeHygiene:
		result, err = models.PaginateHygieneFacts(ctx, filter, page, limit)
	case models.RecordTypeProviderProduction:
		result, err = models.PaginateProviderProductionFacts(ctx, filter, page, limit)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
