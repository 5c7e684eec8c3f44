// Package billing manages subscription plans, plan limits and the
// subscription lifecycle.
package billing

import (
	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// Unlimited marks a limit that does not apply.
const Unlimited = -1

// Plan defines the price and limits of a subscription tier.
type Plan struct {
	Tier              models.PlanTier `json:"tier"`
	Name              string          `json:"name"`
	MonthlyPrice      decimal.Decimal `json:"monthly_price"`
	YearlyPrice       decimal.Decimal `json:"yearly_price"`
	MaxTradesPerMonth int             `json:"max_trades_per_month"` // -1 = unlimited
	MaxAccounts       int             `json:"max_accounts"`         // -1 = unlimited
	MaxInsights       int             `json:"max_insights"`         // per list, -1 = unlimited
	CustomEmotions    bool            `json:"custom_emotions"`
	CSVExport         bool            `json:"csv_export"`
}

// Price returns the plan price for a billing period.
func (p Plan) Price(period models.BillingPeriod) decimal.Decimal {
	if period == models.BillingYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// YearlySavings is what a yearly subscription saves over twelve monthly ones.
func (p Plan) YearlySavings() decimal.Decimal {
	return p.MonthlyPrice.Mul(decimal.NewFromInt(12)).Sub(p.YearlyPrice)
}

// Paid reports whether the plan costs money.
func (p Plan) Paid() bool {
	return p.MonthlyPrice.IsPositive()
}

var plans = map[models.PlanTier]Plan{
	models.PlanFree: {
		Tier:              models.PlanFree,
		Name:              "Free",
		MonthlyPrice:      decimal.Zero,
		YearlyPrice:       decimal.Zero,
		MaxTradesPerMonth: 30,
		MaxAccounts:       1,
		MaxInsights:       3,
	},
	models.PlanPro: {
		Tier:              models.PlanPro,
		Name:              "Pro",
		MonthlyPrice:      decimal.RequireFromString("19.99"),
		YearlyPrice:       decimal.RequireFromString("199.00"),
		MaxTradesPerMonth: 500,
		MaxAccounts:       5,
		MaxInsights:       Unlimited,
		CustomEmotions:    true,
		CSVExport:         true,
	},
	models.PlanElite: {
		Tier:              models.PlanElite,
		Name:              "Elite",
		MonthlyPrice:      decimal.RequireFromString("39.99"),
		YearlyPrice:       decimal.RequireFromString("399.00"),
		MaxTradesPerMonth: Unlimited,
		MaxAccounts:       Unlimited,
		MaxInsights:       Unlimited,
		CustomEmotions:    true,
		CSVExport:         true,
	},
}

// GetPlan returns the plan for a tier, falling back to free.
func GetPlan(tier models.PlanTier) Plan {
	if p, ok := plans[tier]; ok {
		return p
	}
	return plans[models.PlanFree]
}

// Plans returns every plan, cheapest first.
func Plans() []Plan {
	return []Plan{
		plans[models.PlanFree],
		plans[models.PlanPro],
		plans[models.PlanElite],
	}
}
