package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/workflow"
)

func (h *Handler) CreateClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		var input models.NewClient
		if err := c.ShouldBindJSON(&input); err != nil {
			h.badRequest(c, err)
			return
		}
		client, err := h.Engine.CreateClient(c.Request.Context(), actor, input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, client)
	}
}

func (h *Handler) QuotePremium() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := h.actor(c); !ok {
			return
		}
		var input workflow.QuotePremiumInput
		if err := c.ShouldBindJSON(&input); err != nil {
			h.badRequest(c, err)
			return
		}
		quote, err := h.Engine.QuotePremium(c.Request.Context(), input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

func (h *Handler) CreateRfq() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		var input models.NewRfq
		if err := c.ShouldBindJSON(&input); err != nil {
			h.badRequest(c, err)
			return
		}
		rfq, err := h.Engine.CreateRfq(c.Request.Context(), actor, input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, rfq)
	}
}

func (h *Handler) RecordInsurerQuote() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		rfqId, ok := h.pathId(c)
		if !ok {
			return
		}
		var input models.NewRfqInsurerQuote
		if err := c.ShouldBindJSON(&input); err != nil {
			h.badRequest(c, err)
			return
		}
		quote, err := h.Engine.RecordInsurerQuote(c.Request.Context(), actor, rfqId, input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

// TransitionRfq returns the created policy alongside the RFQ when the
// transition converted it.
func (h *Handler) TransitionRfq() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		rfqId, ok := h.pathId(c)
		if !ok {
			return
		}
		var input workflow.RfqTransitionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			h.badRequest(c, err)
			return
		}
		result, err := h.Engine.TransitionRfq(c.Request.Context(), actor, rfqId, input)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
