package premium

import "github.com/shopspring/decimal"

// Breakdown splits a gross premium into the broker's and insurer's shares.
//
//	brokerage       = gross * brokeragePct / 100
//	vat             = brokerage * vatPct / 100
//	agentCommission = gross * agentCommissionPct / 100
//	netDue          = gross - brokerage - vat   (remitted to the insurer on a debit note)
//	brokerNetIncome = brokerage - agentCommission
type Breakdown struct {
	GrossPremium    decimal.Decimal `json:"gross_premium"`
	Brokerage       decimal.Decimal `json:"brokerage"`
	Vat             decimal.Decimal `json:"vat"`
	AgentCommission decimal.Decimal `json:"agent_commission"`
	NetDue          decimal.Decimal `json:"net_due"`
	BrokerNetIncome decimal.Decimal `json:"broker_net_income"`
}

func ComputeBreakdown(gross, brokeragePct, vatPct, agentCommissionPct decimal.Decimal) Breakdown {
	brokerage := gross.Mul(brokeragePct).Shift(-2)
	vat := brokerage.Mul(vatPct).Shift(-2)
	agentCommission := gross.Mul(agentCommissionPct).Shift(-2)
	return Breakdown{
		GrossPremium:    gross,
		Brokerage:       brokerage,
		Vat:             vat,
		AgentCommission: agentCommission,
		NetDue:          gross.Sub(brokerage).Sub(vat),
		BrokerNetIncome: brokerage.Sub(agentCommission),
	}
}
