package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/workflow"
)

func (h *Handler) CreateEndorsement() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		var input models.NewEndorsement
		if err := c.ShouldBindJSON(&input); err != nil {
			h.badRequest(c, err)
			return
		}
		endorsement, err := h.Engine.CreateEndorsement(c.Request.Context(), actor, input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, endorsement)
	}
}

func (h *Handler) ApproveEndorsement() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		id, ok := h.pathId(c)
		if !ok {
			return
		}
		endorsement, err := h.Engine.ApproveEndorsement(c.Request.Context(), actor, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, endorsement)
	}
}

// IssueEndorsement answers BELOW_MINIMUM_PREMIUM with the shortfall and
// canOverride in details; the client retries with confirm_override.
func (h *Handler) IssueEndorsement() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		id, ok := h.pathId(c)
		if !ok {
			return
		}
		var input workflow.IssueEndorsementInput
		if !h.bindOptionalJSON(c, &input) {
			return
		}
		result, err := h.Engine.IssueEndorsement(c.Request.Context(), actor, id, input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
