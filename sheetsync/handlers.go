package sheetsync

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/models"
	"github.com/apexdental/practice_backend/utils"
)

// IngestHandler accepts a pre-parsed sheet payload and runs a sync over it.
func IngestHandler(c *gin.Context) {
	logger := config.GetLogger()

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := RunSync(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		config.LogError(logger, "sheetsync", "IngestHandler", "sync run", req, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// WorkbookIngestHandler accepts a multipart xlsx upload, extracts the first
// sheet and runs a sync over its rows. Record type and location come from
// form fields alongside the file.
func WorkbookIngestHandler(c *gin.Context) {
	logger := config.GetLogger()

	tenantId := c.PostForm("tenantId")
	recordType := c.PostForm("recordType")
	locationHint := c.PostForm("location")
	if tenantId == "" || recordType == "" || locationHint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenantId, recordType and location are required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workbook file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	headers, rows, err := ReadWorkbook(file)
	if err != nil {
		config.LogError(logger, "sheetsync", "WorkbookIngestHandler", "read workbook", fileHeader.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := IngestRequest{
		TenantId:     tenantId,
		RecordType:   recordType,
		LocationHint: locationHint,
		Source:       fileHeader.Filename,
		TriggeredBy:  models.SyncTriggeredManual,
		Headers:      headers,
		Rows:         rows,
	}

	summary, err := RunSync(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		config.LogError(logger, "sheetsync", "WorkbookIngestHandler", "sync run", req.Source, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RunsHandler lists sync runs for the tenant, newest first, paginated.
func RunsHandler(c *gin.Context) {
	ctx, ok := tenantContext(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := models.SyncRunFilter{}
	if v := c.Query("recordType"); v != "" {
		filter.RecordType = &v
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("scopeId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scopeId must be an integer"})
			return
		}
		filter.ScopeId = &id
	}

	result, err := models.PaginateSyncRuns(ctx, filter, page, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunDetailHandler returns one sync run with its per-row errors.
func RunDetailHandler(c *gin.Context) {
	ctx, ok := tenantContext(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id must be an integer"})
		return
	}

	run, err := models.GetSyncRunById(ctx, uint(id))
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "sync run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

func tenantContext(c *gin.Context) (context.Context, bool) {
	tenantId := c.GetHeader("X-Tenant-Id")
	if tenantId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Tenant-Id header is required"})
		return nil, false
	}
	return utils.SetTenantIdInContext(c.Request.Context(), tenantId), true
}
