// Package pricing computes the derived monetary fields of an order.
//
// Every order starts from three user inputs: the gross product cost in the
// source currency (USD), the market exchange rate, and the sale price in the
// target currency (MXN). Everything else on an order row is derived here.
//
// All arithmetic uses shopspring/decimal so stored values match the worked
// examples to the last digit.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default constants for the calculator.
var (
	DefaultTaxMultiplier  = decimal.RequireFromString("1.0825")
	DefaultCommissionRate = decimal.RequireFromString("0.12")
	DefaultMarkupFactor   = decimal.RequireFromString("19.5")
)

// Input holds the raw values typed into the order form.
type Input struct {
	GrossCost    decimal.Decimal // product cost before tax, USD
	ExchangeRate decimal.Decimal // USD -> MXN market rate
	SalePrice    decimal.Decimal // price charged to the customer, MXN
}

// Result holds every derived field of an order.
type Result struct {
	TaxCost        decimal.Decimal // gross cost with tax applied, USD
	Commission     decimal.Decimal // intermediary fee, MXN
	TotalCost      decimal.Decimal // landed cost, MXN
	Profit         decimal.Decimal // sale price minus total cost, MXN
	EquivalentCost decimal.Decimal // total cost expressed back in USD
	WeekRange      string          // Monday-Sunday label containing the computation date
}

// Calculator applies the tax, commission and markup constants.
// The zero value is not usable; call New or set every field.
type Calculator struct {
	TaxMultiplier  decimal.Decimal
	CommissionRate decimal.Decimal
	MarkupFactor   decimal.Decimal

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Calculator configured with the default constants.
func New() *Calculator {
	return &Calculator{
		TaxMultiplier:  DefaultTaxMultiplier,
		CommissionRate: DefaultCommissionRate,
		MarkupFactor:   DefaultMarkupFactor,
		Now:            time.Now,
	}
}

// Ready reports whether the inputs are complete enough to show or save a result.
func Ready(in Input) bool {
	return in.GrossCost.GreaterThan(decimal.Zero)
}

// Compute derives all monetary fields from in.
//
//	tax_cost        = gross_cost * tax_multiplier
//	commission      = tax_cost * commission_rate * markup_factor
//	total_cost      = tax_cost * exchange_rate + commission
//	profit          = sale_price - total_cost
//	equivalent_cost = total_cost / exchange_rate   (0 when exchange_rate <= 0)
func (c *Calculator) Compute(in Input) Result {
	taxCost := in.GrossCost.Mul(c.TaxMultiplier)
	commission := taxCost.Mul(c.CommissionRate).Mul(c.MarkupFactor)
	totalCost := taxCost.Mul(in.ExchangeRate).Add(commission)

	equivalent := decimal.Zero
	if in.ExchangeRate.GreaterThan(decimal.Zero) {
		equivalent = totalCost.DivRound(in.ExchangeRate, 8)
	}

	return Result{
		TaxCost:        taxCost,
		Commission:     commission,
		TotalCost:      totalCost,
		Profit:         in.SalePrice.Sub(totalCost),
		EquivalentCost: equivalent,
		WeekRange:      WeekRange(c.now()),
	}
}

func (c *Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
