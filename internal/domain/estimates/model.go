package estimates

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSent      Status = "Sent"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusExpired   Status = "Expired"
	StatusConverted Status = "Converted"
)

// Editable reports whether estimate content may still change. Once an
// estimate is approved the only remaining transition is conversion.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusSent
}

func (s Status) Convertible() bool {
	return s == StatusApproved
}

// CanTransitionTo reports whether a manual status move from s to next is
// allowed. Approved estimates are immutable except for conversion, which
// owns the Converted transition; rejected and expired estimates can only be
// reopened as drafts.
func (s Status) CanTransitionTo(next Status) bool {
	if next == StatusConverted {
		return false
	}
	switch s {
	case StatusDraft, StatusSent:
		return true
	case StatusRejected, StatusExpired:
		return next == StatusDraft
	default:
		return false
	}
}

type Estimate struct {
	ID             int64
	EstimateNumber string
	Version        int
	CustomerID     int64
	JobName        string
	Address        string
	City           string
	State          string
	Zip            string
	SquareFootage  *int
	NumFloors      *int
	Status         Status
	CreatedAt      time.Time
	ExpirationDate *time.Time
	Notes          string
	CreatedBy      string

	// TaxRate is a fraction (0.064 = 6.4%); MaterialMarkup is a percent (22 = 22%).
	TaxRate        decimal.Decimal
	MaterialMarkup decimal.Decimal
	LaborRate      decimal.Decimal

	ConvertedToJobID *int64
	ConvertedDate    *time.Time

	Rooms []Room
}

// Converted reports whether this estimate has already produced a job.
func (e *Estimate) Converted() bool {
	return e.ConvertedToJobID != nil
}

// LineItems flattens every room's items in room order.
func (e *Estimate) LineItems() []LineItem {
	var out []LineItem
	for _, r := range e.Rooms {
		out = append(out, r.Items...)
	}
	return out
}

type Room struct {
	ID         int64
	EstimateID int64
	Name       string
	RoomOrder  int
	Notes      string
	Items      []LineItem
}

type LineItem struct {
	ID           int64
	RoomID       int64
	ItemID       *int64
	ItemCode     string
	Description  string
	Quantity     int
	UnitPrice    decimal.Decimal
	MaterialCost decimal.Decimal
	LaborMinutes int
	LineOrder    int
	Notes        string
}

// TotalPrice is quantity times unit price. Pure; no side effects.
func (li LineItem) TotalPrice() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// EffectiveMaterialCost falls back to quantity times unit price when no
// explicit material cost was captured on the line.
func (li LineItem) EffectiveMaterialCost() decimal.Decimal {
	if li.MaterialCost.IsZero() {
		return li.TotalPrice()
	}
	return li.MaterialCost
}

// StageSummary is derived data: one row per stage per estimate, recomputed
// wholesale on every save. It is never patched incrementally.
type StageSummary struct {
	ID           int64
	EstimateID   int64
	Stage        string
	LaborMinutes int
	LaborHours   decimal.Decimal
	MaterialCost decimal.Decimal
	StageOrder   int
}
