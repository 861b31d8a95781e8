package workflow

import (
	"fmt"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
)

// AllowApproval is the single approval policy: the actual level must rank at
// or above the required one. Unknown levels never pass.
func AllowApproval(required, actual models.ApprovalLevel) bool {
	return required.Rank() > 0 && actual.Rank() >= required.Rank()
}

func requireApprovalLevel(actor models.Actor, required models.ApprovalLevel, action string) error {
	if AllowApproval(required, actor.ApprovalLevel) {
		return nil
	}
	return utils.NewDomainError(utils.ErrCodeInsufficientApprovalLevel,
		fmt.Sprintf("%s requires approval level %s", action, required),
		map[string]any{"action": action, "required": string(required), "actual": string(actor.ApprovalLevel)})
}

// CanOverrideMinimumPremium reports whether actor may issue below the minimum
// premium by shortfall: a top-tier role with a sufficient override limit.
func CanOverrideMinimumPremium(actor models.Actor, overrideRoles []string, shortfall decimal.Decimal) bool {
	return actor.HasRole(overrideRoles) && actor.MaxOverrideLimit.GreaterThanOrEqual(shortfall)
}
