package difficulty

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/stage"
)

// Preset is a named multiplier set applied to stage labor minutes
// ("Beach", "Summer Peak", "December", ...).
type Preset struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Rough       decimal.Decimal
	Finish      decimal.Decimal
	Service     decimal.Decimal
	Extra       decimal.Decimal
	IsActive    bool
	SortOrder   int
}

var one = decimal.NewFromInt(1)

// HasAdjustment is false when every multiplier is exactly 1.00.
func (p Preset) HasAdjustment() bool {
	return !p.Rough.Equal(one) || !p.Finish.Equal(one) ||
		!p.Service.Equal(one) || !p.Extra.Equal(one)
}

func (p Preset) multiplier(stageName string) decimal.Decimal {
	switch stageName {
	case stage.Rough:
		return p.Rough
	case stage.Finish:
		return p.Finish
	case stage.Service:
		return p.Service
	case stage.Extra:
		return p.Extra
	default:
		return one
	}
}

// AdjustMinutes scales base labor minutes by the preset's multiplier for the
// given stage, rounding half away from zero. Stages outside the multiplier
// set (Demo and unknown names) pass through unchanged.
func (p Preset) AdjustMinutes(baseMinutes int, stageName string) int {
	return int(decimal.NewFromInt(int64(baseMinutes)).
		Mul(p.multiplier(stageName)).
		Round(0).
		IntPart())
}

// StageMinutes pairs a stage's estimated labor with its preset-adjusted
// figure.
type StageMinutes struct {
	Stage           string
	BaseMinutes     int
	AdjustedMinutes int
}

// ApplyToSummaries scales every stage summary's labor minutes by the
// preset's multipliers, in the summaries' stage order.
func (p Preset) ApplyToSummaries(summaries []estimates.StageSummary) []StageMinutes {
	out := make([]StageMinutes, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, StageMinutes{
			Stage:           s.Stage,
			BaseMinutes:     s.LaborMinutes,
			AdjustedMinutes: p.AdjustMinutes(s.LaborMinutes, s.Stage),
		})
	}
	return out
}

type AdjustmentType string

const (
	AdjustPreset AdjustmentType = "PRESET"
	AdjustAccess AdjustmentType = "ACCESS"
	AdjustCustom AdjustmentType = "CUSTOM"
	AdjustSeason AdjustmentType = "SEASON"
	AdjustLearn  AdjustmentType = "LEARN"
	AdjustEquip  AdjustmentType = "EQUIP"
)

// Adjustment is the append-only audit record of a multiplier set applied to
// an estimate or job. Rows are never mutated after creation.
type Adjustment struct {
	ID         int64
	EstimateID *int64
	JobID      *int64
	Type       AdjustmentType
	PresetID   *int64
	Rough      decimal.Decimal
	Finish     decimal.Decimal
	Service    decimal.Decimal
	Extra      decimal.Decimal
	Reason     string
	CreatedBy  string
	CreatedAt  time.Time
}

// FromPreset copies a preset's multipliers into a new audit record.
func FromPreset(p Preset, reason, createdBy string) Adjustment {
	id := p.ID
	return Adjustment{
		Type:      AdjustPreset,
		PresetID:  &id,
		Rough:     p.Rough,
		Finish:    p.Finish,
		Service:   p.Service,
		Extra:     p.Extra,
		Reason:    reason,
		CreatedBy: createdBy,
	}
}
