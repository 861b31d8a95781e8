package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/brokerage_backend/appctx"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
)

const bearerPrefix = "Bearer "

// AuthMiddleware resolves the bearer token into a models.Actor. Requests
// without a valid token are rejected.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if !strings.HasPrefix(auth, bearerPrefix) {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		validate, err := utils.JwtValidate(strings.TrimSpace(auth[len(bearerPrefix):]))
		if err != nil || !validate.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}
		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok || customClaim.ID <= 0 {
			abortUnauthorized(c, "invalid token claims")
			return
		}
		actor, err := ActorFromClaim(customClaim)
		if err != nil {
			abortUnauthorized(c, "invalid token claims")
			return
		}

		ctx := SetActorInContext(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ActorFromClaim maps token claims onto the authorization context.
func ActorFromClaim(claim *utils.JwtCustomClaim) (models.Actor, error) {
	limit := decimal.Zero
	if raw := strings.TrimSpace(claim.MaxOverrideLimit); raw != "" {
		var err error
		limit, err = utils.ParseAmount(raw)
		if err != nil {
			return models.Actor{}, err
		}
	}
	return models.Actor{
		UserId:           claim.ID,
		UserName:         claim.Name,
		Role:             claim.Role,
		ApprovalLevel:    models.ApprovalLevel(strings.ToUpper(strings.TrimSpace(claim.ApprovalLevel))),
		MaxOverrideLimit: limit,
	}, nil
}

func SetActorInContext(ctx context.Context, actor models.Actor) context.Context {
	ctx = appctx.Set(ctx, appctx.ContextKeyActor, actor)
	ctx = utils.SetUserIdInContext(ctx, actor.UserId)
	ctx = utils.SetUserNameInContext(ctx, actor.UserName)
	return utils.SetRoleInContext(ctx, actor.Role)
}

func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := appctx.Get(ctx, appctx.ContextKeyActor).(models.Actor)
	return actor, ok
}

// CorrelationMiddleware attaches x-correlation-id (or a fresh one) to the
// request context; lifecycle events recorded by the request carry it.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
