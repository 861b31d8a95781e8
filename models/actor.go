package models

import (
	"strings"

	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
)

// Actor is the authorization context of the user performing an operation.
// It is supplied by the caller and never persisted.
type Actor struct {
	UserId           int             `json:"user_id"`
	UserName         string          `json:"user_name"`
	Role             string          `json:"role"`
	ApprovalLevel    ApprovalLevel   `json:"approval_level"`
	MaxOverrideLimit decimal.Decimal `json:"max_override_limit"`
}

// HasRole matches case-insensitively. An empty role matches nothing.
func (a Actor) HasRole(roles []string) bool {
	if strings.TrimSpace(a.Role) == "" {
		return false
	}
	return utils.ContainsFold(roles, a.Role)
}
