package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/reports"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/mmdatafocus/brokerage_backend/workflow"
	"github.com/sirupsen/logrus"
)

const opsApprovalLevel = models.ApprovalLevelL3

type expireRequest struct {
	AsOf   string `json:"as_of"`
	DryRun bool   `json:"dry_run"`
}

func (h *Handler) requireOps(c *gin.Context) bool {
	actor, ok := h.actor(c)
	if !ok {
		return false
	}
	if !workflow.AllowApproval(opsApprovalLevel, actor.ApprovalLevel) {
		h.respondError(c, utils.NewDomainError(utils.ErrCodeInsufficientApprovalLevel,
			"policy expiry requires approval level "+string(opsApprovalLevel),
			map[string]any{"action": "expire policies", "required": string(opsApprovalLevel), "actual": string(actor.ApprovalLevel)}))
		return false
	}
	return true
}

// ExpirePolicies runs the auto-expiry sweep on demand.
func (h *Handler) ExpirePolicies() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.requireOps(c) {
			return
		}
		var req expireRequest
		if !h.bindOptionalJSON(c, &req) {
			return
		}
		asOf, err := utils.ParseAsOf(req.AsOf, time.Now())
		if err != nil {
			h.respondError(c, err)
			return
		}
		report, err := h.Engine.ExpirePolicies(c.Request.Context(), asOf, req.DryRun)
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.logger().WithFields(logrus.Fields{
			"field":      "ExpirePolicies",
			"as_of":      report.AsOf.Format(time.RFC3339),
			"dry_run":    report.DryRun,
			"candidates": len(report.Candidates),
			"expired":    report.Expired,
		}).Info("manual expiry sweep")
		c.JSON(http.StatusOK, report)
	}
}

// ExpiryReport downloads a dry-run expiry workbook.
func (h *Handler) ExpiryReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.requireOps(c) {
			return
		}
		asOf, err := utils.ParseAsOf(c.Query("as_of"), time.Now())
		if err != nil {
			h.respondError(c, err)
			return
		}
		report, err := h.Engine.ExpirePolicies(c.Request.Context(), asOf, true)
		if err != nil {
			h.respondError(c, err)
			return
		}
		var buf bytes.Buffer
		if err := reports.WriteExpiryWorkbook(&buf, report); err != nil {
			h.respondError(c, err)
			return
		}
		filename := "policy-expiry-" + asOf.Format("2006-01-02") + ".xlsx"
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, reports.ContentType(), buf.Bytes())
	}
}
