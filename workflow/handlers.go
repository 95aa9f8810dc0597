package workflow

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmbizsuite/console_backend/models"
	"github.com/mmbizsuite/console_backend/utils"
)

type batchTriggerRequest struct {
	Cursor   *int `json:"cursor"`
	PageSize int  `json:"pageSize"`
	MaxPages int  `json:"maxPages"`
}

type resetSyncFlagsRequest struct {
	FromDateInt int `json:"fromDateInt" binding:"required"`
	ToDateInt   int `json:"toDateInt" binding:"required"`
}

type treasuryRecomputeRequest struct {
	AccountId *int `json:"accountId"`
}

type toggleFeePairRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
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

// RecalcFeesHandler serves POST /api/recon/bank-fees and
// /api/recon/gateway-fees; the two variants are symmetric.
func RecalcFeesHandler(kind models.FeeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchTriggerRequest
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}

		ctx := c.Request.Context()
		opts := WalkerOptions{PageSize: req.PageSize, MaxPages: req.MaxPages}
		result, err := RunFeeRecalc(ctx, NewFeeStore(), kind, req.Cursor, opts)
		if err != nil {
			if result == nil {
				// Scope lock held or precondition failed; nothing ran.
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			// Partial progress is still reported so the caller can resume.
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ResetSyncFlagsHandler serves POST /api/recon/reset-sync-flags.
func ResetSyncFlagsHandler(c *gin.Context) {
	var req resetSyncFlagsRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	updated, total, err := models.ResetOdooSyncFlags(ctx, req.FromDateInt, req.ToDateInt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updatedCount": updated, "totalCount": total})
}

// TreasuryRecomputeHandler serves POST /api/recon/treasury.
func TreasuryRecomputeHandler(c *gin.Context) {
	var req treasuryRecomputeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	reports, err := RunTreasuryRecompute(ctx, req.AccountId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "reports": reports})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// ListFeePairsHandler serves GET /api/recon/fee-pairs.
func ListFeePairsHandler(c *gin.Context) {
	pairs, err := models.GetFeePairs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feePairs": pairs})
}

// CreateFeePairHandler serves POST /api/recon/fee-pairs. A second active
// pair for the same labels is rejected; the resolver would otherwise report
// every matching transaction as ambiguous config.
func CreateFeePairHandler(c *gin.Context) {
	var req models.NewFeePair
	if !bindJSON(c, &req) {
		return
	}

	pair, err := models.CreateFeePair(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateFeePair) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, pair)
}

// ToggleFeePairHandler serves POST /api/recon/fee-pairs/:id/toggle.
func ToggleFeePairHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fee pair id"})
		return
	}
	var req toggleFeePairRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := models.ToggleActiveFeePair(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "fee pair not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// ActiveJobsHandler serves GET /api/recon/jobs: pending/running jobs plus
// terminal ones inside the grace window.
func ActiveJobsHandler(c *gin.Context) {
	jobs, err := models.ActiveSyncJobs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// JobDetailHandler serves GET /api/recon/jobs/:id with per-record errors.
func JobDetailHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := models.GetSyncJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

// JobErrorsHandler serves GET /api/recon/jobs/:id/errors: the per-record
// failure log of one run, without the rest of the job detail payload.
func JobErrorsHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	jobErrors, err := models.GetSyncJobErrors(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": jobErrors})
}
