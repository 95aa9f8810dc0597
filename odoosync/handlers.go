package odoosync

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmbizsuite/console_backend/models"
	"github.com/mmbizsuite/console_backend/utils"
)

type connectRequest struct {
	BaseUrl string `json:"baseUrl" binding:"required"`
	ApiKey  string `json:"apiKey" binding:"required"`
}

type triggerSyncRequest struct {
	EntityTypes []string `json:"entityTypes"`
}

type syncEntityRequest struct {
	Id int `json:"id" binding:"required"`
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return false
	}
	return true
}

// StatusHandler serves GET /api/integrations/odoo/status.
func StatusHandler(c *gin.Context) {
	conn, err := models.GetOdooConnection(c.Request.Context())
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"status": models.OdooConnectionStatusDisconnected})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       conn.Status,
		"baseUrl":      conn.BaseUrl,
		"settings":     conn.Settings(),
		"lastSyncedAt": conn.LastSyncedAt,
	})
}

// ConnectHandler serves POST /api/integrations/odoo/connect.
func ConnectHandler(c *gin.Context) {
	var req connectRequest
	if !bindJSON(c, &req) {
		return
	}

	conn, err := models.ConnectOdoo(c.Request.Context(), req.BaseUrl, req.ApiKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": conn.Status})
}

// DisconnectHandler serves POST /api/integrations/odoo/disconnect.
func DisconnectHandler(c *gin.Context) {
	conn, err := models.DisconnectOdoo(c.Request.Context())
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no odoo connection"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": conn.Status})
}

// UpdateSettingsHandler serves POST /api/integrations/odoo/settings.
func UpdateSettingsHandler(c *gin.Context) {
	var settings models.OdooSyncSettings
	if !bindJSON(c, &settings) {
		return
	}

	conn, err := models.UpdateOdooSyncSettings(c.Request.Context(), settings)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no odoo connection"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": conn.Settings()})
}

// TriggerSyncHandler serves POST /api/integrations/odoo/sync: claims the
// authoritative job for the catalog-sync scope and queues the run. A
// duplicate trigger attaches to the in-flight job instead of running twice.
func TriggerSyncHandler(c *gin.Context) {
	var req triggerSyncRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	conn, err := models.GetOdooConnection(ctx)
	if err != nil || conn.Status != models.OdooConnectionStatusConnected {
		c.JSON(http.StatusConflict, gin.H{"error": "odoo connection is not active"})
		return
	}

	job, attached, err := models.ClaimSyncJob(ctx, JobKindCatalogSync, JobKindCatalogSync, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if attached {
		c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "attached": true, "status": job.Status})
		return
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	msg := SyncRunMessage{
		BusinessId:    job.BusinessId,
		JobId:         job.ID,
		EntityTypes:   req.EntityTypes,
		CorrelationId: correlationId,
	}
	if err := EnqueueSyncRun(msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "jobId": job.ID})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "attached": false, "status": job.Status})
}

// SyncEntityHandler serves POST /api/integrations/odoo/sync/<entity> for the
// per-change-event path. Response shape: {success, externalId?, error?}.
func SyncEntityHandler(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req syncEntityRequest
		if !bindJSON(c, &req) {
			return
		}

		externalId, created, err := SyncSingleEntity(c.Request.Context(), entityType, req.Id)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, utils.ErrorRecordNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "externalId": externalId, "created": created})
	}
}

// HistoryHandler serves GET /api/integrations/odoo/sync-runs.
func HistoryHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := models.SyncJobHistory(c.Request.Context(), JobKindCatalogSync, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// RetrySyncHandler serves POST /api/integrations/odoo/sync-runs/:id/retry: a new
// run for the scope of a failed job. Records already synced short-circuit at
// the update step, so a retry only does the remaining work.
func RetrySyncHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	ctx := c.Request.Context()

	previous, err := models.GetSyncJob(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if previous.Status != models.SyncJobStatusFailed {
		c.JSON(http.StatusConflict, gin.H{"error": "only failed jobs can be retried"})
		return
	}

	TriggerSyncHandler(c)
}
