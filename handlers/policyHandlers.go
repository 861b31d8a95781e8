package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/workflow"
)

type policyAction func(e *workflow.Engine, ctx context.Context, actor models.Actor, policyId int) (*models.Policy, error)

// policyHandler serves the body-less policy operations. action is a method
// expression so the engine is resolved per request.
func (h *Handler) policyHandler(action policyAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		policyId, ok := h.pathId(c)
		if !ok {
			return
		}
		policy, err := action(h.Engine, c.Request.Context(), actor, policyId)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, policy)
	}
}

func (h *Handler) GenerateSlip() gin.HandlerFunc {
	return h.policyHandler((*workflow.Engine).GenerateSlip)
}

func (h *Handler) SubmitSlip() gin.HandlerFunc {
	return h.policyHandler((*workflow.Engine).SubmitSlip)
}

func (h *Handler) RecordSlipResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		policyId, ok := h.pathId(c)
		if !ok {
			return
		}
		var input workflow.SlipResponseInput
		if err := c.ShouldBindJSON(&input); err != nil {
			h.badRequest(c, err)
			return
		}
		policy, err := h.Engine.RecordSlipResponse(c.Request.Context(), actor, policyId, input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, policy)
	}
}

func (h *Handler) RenewPolicy() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		policyId, ok := h.pathId(c)
		if !ok {
			return
		}
		var input workflow.RenewPolicyInput
		if !h.bindOptionalJSON(c, &input) {
			return
		}
		renewal, err := h.Engine.RenewPolicy(c.Request.Context(), actor, policyId, input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, renewal)
	}
}

func (h *Handler) CancelPolicy() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		policyId, ok := h.pathId(c)
		if !ok {
			return
		}
		var input workflow.CancelPolicyInput
		if !h.bindOptionalJSON(c, &input) {
			return
		}
		policy, err := h.Engine.CancelPolicy(c.Request.Context(), actor, policyId, input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, policy)
	}
}
