package jobs

import (
	"time"

	"github.com/shopspring/decimal"
)

const StatusInProgress = "In Progress"

type Job struct {
	ID            int64
	JobNumber     string
	CustomerID    int64
	JobName       string
	Address       string
	City          string
	State         string
	Zip           string
	SquareFootage *int
	NumFloors     *int
	Status        string
	CreatedAt     time.Time
	TotalEstimate *decimal.Decimal
	EstimateID    *int64
	Notes         string
}

// JobStage aggregates estimated vs. actual labor and material per work
// stage. Variances are computed, never stored.
type JobStage struct {
	ID                    int64
	JobID                 int64
	StageName             string
	EstimatedHours        decimal.Decimal
	EstimatedMaterialCost decimal.Decimal
	ActualHours           decimal.Decimal
	ActualMaterialCost    decimal.Decimal
	Notes                 string
}

func (s JobStage) HoursVariance() decimal.Decimal {
	return s.EstimatedHours.Sub(s.ActualHours)
}

func (s JobStage) MaterialCostVariance() decimal.Decimal {
	return s.EstimatedMaterialCost.Sub(s.ActualMaterialCost)
}

func (s JobStage) EstimatedTotalCost(laborRate decimal.Decimal) decimal.Decimal {
	return s.EstimatedHours.Mul(laborRate).Add(s.EstimatedMaterialCost).Round(2)
}

type MaterialEntry struct {
	ID       int64
	JobID    int64
	StageID  int64
	VendorID int64
	Date     time.Time
	Cost     decimal.Decimal
	Notes    string
}

type PermitItem struct {
	ID          int64
	JobID       int64
	Category    string
	Quantity    int
	Description string
}

// RoomSpecification mirrors an estimate line item onto the job, room by
// room, at conversion time.
type RoomSpecification struct {
	ID              int64
	JobID           int64
	RoomName        string
	ItemDescription string
	Quantity        int
	ItemCode        string
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
}
