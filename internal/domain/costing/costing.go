// Package costing aggregates estimate rooms and line items into money
// totals. Everything here is pure decimal arithmetic: the same estimate
// always produces the same totals.
package costing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/stage"
)

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

type Totals struct {
	MaterialTotal      decimal.Decimal
	LaborMinutes       int
	LaborCost          decimal.Decimal
	MaterialWithMarkup decimal.Decimal
	Subtotal           decimal.Decimal
	TotalPrice         decimal.Decimal
}

// Calculate computes estimate totals from rooms and line items.
//
//	materialTotal      = sum of line material cost (qty*unit fallback)
//	laborMinutes       = sum of line labor minutes * quantity
//	laborCost          = minutes/60 * labor rate
//	materialWithMarkup = materialTotal * (1 + markup/100)
//	subtotal           = materialWithMarkup + laborCost
//	total              = subtotal * (1 + tax rate)
//
// Money values are rounded to cents, half away from zero. An estimate with
// no line items totals to zero.
func Calculate(e *estimates.Estimate) Totals {
	var t Totals
	material := decimal.Zero

	for _, li := range e.LineItems() {
		material = material.Add(li.EffectiveMaterialCost())
		t.LaborMinutes += li.LaborMinutes * li.Quantity
	}

	t.MaterialTotal = material.Round(2)
	t.LaborCost = decimal.NewFromInt(int64(t.LaborMinutes)).
		Div(sixty).
		Mul(e.LaborRate).
		Round(2)
	t.MaterialWithMarkup = material.
		Mul(one.Add(e.MaterialMarkup.Div(hundred))).
		Round(2)
	t.Subtotal = t.MaterialWithMarkup.Add(t.LaborCost)
	t.TotalPrice = t.Subtotal.Mul(one.Add(e.TaxRate)).Round(2)
	return t
}

// LaborHours converts labor minutes to hours rounded to two places.
func LaborHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(sixty).Round(2)
}

// StageSummaries buckets every line item by work stage and aggregates labor
// and material per stage. The result replaces any previously stored summary
// rows; callers persist it with a delete-then-reinsert so the stored rows can
// never drift from the line items.
func StageSummaries(e *estimates.Estimate) []estimates.StageSummary {
	type acc struct {
		minutes  int
		material decimal.Decimal
	}
	byStage := map[string]*acc{}

	for _, li := range e.LineItems() {
		s := stage.Determine(li.ItemCode)
		a, ok := byStage[s]
		if !ok {
			a = &acc{material: decimal.Zero}
			byStage[s] = a
		}
		a.minutes += li.LaborMinutes * li.Quantity
		a.material = a.material.Add(li.EffectiveMaterialCost())
	}

	out := make([]estimates.StageSummary, 0, len(byStage))
	for name, a := range byStage {
		out = append(out, estimates.StageSummary{
			EstimateID:   e.ID,
			Stage:        name,
			LaborMinutes: a.minutes,
			LaborHours:   LaborHours(a.minutes),
			MaterialCost: a.material.Round(2),
			StageOrder:   stage.Order(name),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageOrder < out[j].StageOrder })
	return out
}
