package workflow

import (
	"fmt"
	"slices"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
)

// Allowed next states per current state. A state missing from a table is terminal.

var rfqTransitions = map[models.RfqStatus][]models.RfqStatus{
	models.RfqStatusDraft:  {models.RfqStatusQuoted, models.RfqStatusLost},
	models.RfqStatusQuoted: {models.RfqStatusWon, models.RfqStatusLost},
	models.RfqStatusWon:    {models.RfqStatusConvertedToPolicy},
}

// A NULL/empty policy status is read as draft.
var policyTransitions = map[models.PolicyStatus][]models.PolicyStatus{
	models.PolicyStatusDraft:   {models.PolicyStatusPending, models.PolicyStatusActive, models.PolicyStatusCancelled},
	models.PolicyStatusPending: {models.PolicyStatusActive, models.PolicyStatusCancelled},
	models.PolicyStatusActive:  {models.PolicyStatusExpired, models.PolicyStatusCancelled},
}

var slipTransitions = map[models.SlipStatus][]models.SlipStatus{
	models.SlipStatusDraft:     {models.SlipStatusSubmitted},
	models.SlipStatusSubmitted: {models.SlipStatusBound, models.SlipStatusDeclined},
}

var endorsementTransitions = map[models.EndorsementStatus][]models.EndorsementStatus{
	models.EndorsementStatusDraft:    {models.EndorsementStatusApproved},
	models.EndorsementStatusApproved: {models.EndorsementStatusIssued},
}

// checkTransition returns STATUS_UNCHANGED when target == current and
// INVALID_TRANSITION when target is not an allowed next state.
func checkTransition[S ~string](entity string, table map[S][]S, current, target S) error {
	if current == target {
		return utils.NewDomainError(utils.ErrCodeStatusUnchanged,
			fmt.Sprintf("%s is already %s", entity, current),
			map[string]any{"entity": entity, "current": string(current)})
	}
	return checkAllowed(entity, table, current, target)
}

// checkAllowed is checkTransition without the STATUS_UNCHANGED shortcut.
func checkAllowed[S ~string](entity string, table map[S][]S, current, target S) error {
	allowed := table[current]
	if slices.Contains(allowed, target) {
		return nil
	}
	next := make([]string, 0, len(allowed))
	for _, s := range allowed {
		next = append(next, string(s))
	}
	return utils.NewDomainError(utils.ErrCodeInvalidTransition,
		fmt.Sprintf("%s cannot move from %q to %q", entity, current, target),
		map[string]any{"entity": entity, "current": string(current), "target": string(target), "allowed": next})
}

func effectivePolicyStatus(p *models.Policy) models.PolicyStatus {
	if s := p.CurrentStatus(); s != "" {
		return s
	}
	return models.PolicyStatusDraft
}

// rejectIfClosed guards operations that need a live policy.
func rejectIfClosed(p *models.Policy, action string) error {
	status := effectivePolicyStatus(p)
	if status == models.PolicyStatusCancelled || status == models.PolicyStatusExpired {
		return utils.NewDomainError(utils.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot %s a %s policy", action, status),
			map[string]any{"entity": "policy", "id": p.ID, "current": string(status), "action": action})
	}
	return nil
}
