package jobs

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestJobStageVariances(t *testing.T) {
	s := JobStage{
		EstimatedHours:        dec("10"),
		EstimatedMaterialCost: dec("250"),
		ActualHours:           dec("12.5"),
		ActualMaterialCost:    dec("200"),
	}

	assert.True(t, s.HoursVariance().Equal(dec("-2.5")), "hours %s", s.HoursVariance())
	assert.True(t, s.MaterialCostVariance().Equal(dec("50")), "material %s", s.MaterialCostVariance())
}

func TestJobStageVariancesZeroActuals(t *testing.T) {
	s := JobStage{
		EstimatedHours:        dec("4"),
		EstimatedMaterialCost: dec("80"),
	}
	assert.True(t, s.HoursVariance().Equal(dec("4")))
	assert.True(t, s.MaterialCostVariance().Equal(dec("80")))
}

func TestJobStageEstimatedTotalCost(t *testing.T) {
	s := JobStage{
		EstimatedHours:        dec("1.33"),
		EstimatedMaterialCost: dec("30"),
	}
	// 1.33h at $75 plus material, to cents.
	assert.True(t, s.EstimatedTotalCost(dec("75")).Equal(dec("129.75")), "total %s", s.EstimatedTotalCost(dec("75")))
}
