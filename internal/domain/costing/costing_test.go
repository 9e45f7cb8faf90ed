package costing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/stage"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleEstimate() *estimates.Estimate {
	return &estimates.Estimate{
		ID:             1,
		LaborRate:      dec("75"),
		MaterialMarkup: dec("22"),
		TaxRate:        dec("0.064"),
		Rooms: []estimates.Room{{
			Name: "Kitchen",
			Items: []estimates.LineItem{{
				ItemCode:     "hh",
				Quantity:     2,
				UnitPrice:    dec("15"),
				LaborMinutes: 40,
			}},
		}},
	}
}

func TestCalculate(t *testing.T) {
	// 80 labor minutes at $75/h is $100; $30 material with 22% markup is
	// $36.60; subtotal $136.60; 6.4% tax lands at $145.34.
	got := Calculate(sampleEstimate())

	assert.Equal(t, 80, got.LaborMinutes)
	assert.True(t, got.MaterialTotal.Equal(dec("30")), "material %s", got.MaterialTotal)
	assert.True(t, got.LaborCost.Equal(dec("100")), "labor %s", got.LaborCost)
	assert.True(t, got.MaterialWithMarkup.Equal(dec("36.60")), "markup %s", got.MaterialWithMarkup)
	assert.True(t, got.Subtotal.Equal(dec("136.60")), "subtotal %s", got.Subtotal)
	assert.True(t, got.TotalPrice.Equal(dec("145.34")), "total %s", got.TotalPrice)
}

func TestCalculateDeterministic(t *testing.T) {
	e := sampleEstimate()
	first := Calculate(e)
	second := Calculate(e)
	assert.Equal(t, first, second)
}

func TestCalculateEmptyEstimate(t *testing.T) {
	e := &estimates.Estimate{
		LaborRate:      dec("75"),
		MaterialMarkup: dec("22"),
		TaxRate:        dec("0.064"),
	}
	got := Calculate(e)
	assert.Zero(t, got.LaborMinutes)
	assert.True(t, got.TotalPrice.IsZero(), "total %s", got.TotalPrice)
}

func TestCalculateExplicitMaterialCost(t *testing.T) {
	e := sampleEstimate()
	// An explicit material cost replaces the qty*unit fallback on that line.
	e.Rooms[0].Items[0].MaterialCost = dec("12.50")
	got := Calculate(e)
	assert.True(t, got.MaterialTotal.Equal(dec("12.50")), "material %s", got.MaterialTotal)
}

func TestLaborHours(t *testing.T) {
	assert.True(t, LaborHours(90).Equal(dec("1.5")))
	assert.True(t, LaborHours(80).Equal(dec("1.33")))
	assert.True(t, LaborHours(0).IsZero())
}

func TestStageSummaries(t *testing.T) {
	e := &estimates.Estimate{
		ID:             7,
		LaborRate:      dec("75"),
		MaterialMarkup: dec("22"),
		TaxRate:        dec("0.064"),
		Rooms: []estimates.Room{{
			Name: "Basement",
			Items: []estimates.LineItem{
				{ItemCode: "hh", Quantity: 4, UnitPrice: dec("25"), LaborMinutes: 30},
				{ItemCode: "panel", Quantity: 1, UnitPrice: dec("500"), LaborMinutes: 240},
				{ItemCode: "romex", Quantity: 10, UnitPrice: dec("0.80"), LaborMinutes: 6},
				{ItemCode: "demo", Quantity: 1, UnitPrice: dec("0"), LaborMinutes: 60},
			},
		}},
	}

	got := StageSummaries(e)
	require.Len(t, got, 4)

	// Schedule order: Demo, Rough, Service, Finish.
	assert.Equal(t, stage.Demo, got[0].Stage)
	assert.Equal(t, stage.Rough, got[1].Stage)
	assert.Equal(t, stage.Service, got[2].Stage)
	assert.Equal(t, stage.Finish, got[3].Stage)

	rough := got[1]
	assert.Equal(t, 60, rough.LaborMinutes)
	assert.True(t, rough.LaborHours.Equal(dec("1")), "hours %s", rough.LaborHours)
	assert.True(t, rough.MaterialCost.Equal(dec("8")), "material %s", rough.MaterialCost)

	finish := got[3]
	assert.Equal(t, 120, finish.LaborMinutes)
	assert.True(t, finish.MaterialCost.Equal(dec("100")), "material %s", finish.MaterialCost)

	for _, s := range got {
		assert.Equal(t, e.ID, s.EstimateID)
		assert.Equal(t, stage.Order(s.Stage), s.StageOrder)
	}
}
