// Package handlers exposes the workflow engine over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/middlewares"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/mmdatafocus/brokerage_backend/workflow"
	"github.com/sirupsen/logrus"
)

// Handler may be registered before Engine is set; the server keeps requests
// out until it is.
type Handler struct {
	Engine *workflow.Engine
	Logger *logrus.Logger
}

func New(engine *workflow.Engine, logger *logrus.Logger) *Handler {
	return &Handler{Engine: engine, Logger: logger}
}

// Register mounts every route on r. r is expected to run AuthMiddleware.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/clients", h.CreateClient())
	r.POST("/premium/quote", h.QuotePremium())

	r.POST("/rfqs", h.CreateRfq())
	r.POST("/rfqs/:id/quotes", h.RecordInsurerQuote())
	r.POST("/rfqs/:id/transition", h.TransitionRfq())

	r.POST("/policies/:id/slip", h.GenerateSlip())
	r.POST("/policies/:id/slip/submit", h.SubmitSlip())
	r.POST("/policies/:id/slip/response", h.RecordSlipResponse())
	r.POST("/policies/:id/renew", h.RenewPolicy())
	r.POST("/policies/:id/cancel", h.CancelPolicy())

	r.POST("/endorsements", h.CreateEndorsement())
	r.POST("/endorsements/:id/approve", h.ApproveEndorsement())
	r.POST("/endorsements/:id/issue", h.IssueEndorsement())

	r.POST("/ops/policies/expire", h.ExpirePolicies())
	r.GET("/ops/policies/expiry-report", h.ExpiryReport())
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := utils.HTTPStatusFor(err)
	code, ok := utils.ErrorCodeOf(err)
	if !ok {
		// Store errors are not shown to callers.
		_ = c.Error(err)
		c.JSON(status, errorBody{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}
	if code == utils.ErrCodeSequenceExhausted {
		_ = c.Error(err)
	}
	c.JSON(status, errorBody{Code: string(code), Message: errorMessage(err), Details: utils.ErrorDetailsOf(err)})
}

func errorMessage(err error) string {
	var de *utils.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.respondError(c, utils.ValidationFailed("body", "malformed request body: "+err.Error()))
}

// actor returns the caller resolved by AuthMiddleware.
func (h *Handler) actor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middlewares.ActorFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: "UNAUTHORIZED", Message: "unauthorized"})
		return models.Actor{}, false
	}
	return actor, true
}

func (h *Handler) pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.respondError(c, utils.ValidationFailed("id", "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// bindOptionalJSON accepts an empty body as the zero input.
func (h *Handler) bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		h.badRequest(c, err)
		return false
	}
	return true
}

func (h *Handler) logger() *logrus.Logger {
	if h.Logger == nil {
		return config.GetLogger()
	}
	return h.Logger
}
