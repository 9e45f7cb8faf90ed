package materials

import (
	"time"

	"github.com/shopspring/decimal"
)

type Material struct {
	ID                int64
	Code              string
	Name              string
	Description       string
	Category          string
	UnitOfMeasure     string
	CurrentPrice      decimal.Decimal
	TaxRate           decimal.Decimal // percent, e.g. 6.4
	MinStockLevel     int
	MaxStockLevel     int
	PreferredVendorID *int64
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	CreatedBy         string
}

var hundred = decimal.NewFromInt(100)

func (m Material) PriceWithTax() decimal.Decimal {
	return m.CurrentPrice.Mul(decimal.NewFromInt(1).Add(m.TaxRate.Div(hundred))).Round(2)
}

// PercentChange is (new-old)/old*100 rounded to two places. A zero old price
// yields exactly zero rather than a division error.
func PercentChange(oldPrice, newPrice decimal.Decimal) decimal.Decimal {
	if oldPrice.IsZero() {
		return decimal.Zero
	}
	return newPrice.Sub(oldPrice).Div(oldPrice).Mul(hundred).Round(2)
}

// PriceHistory records one price transition. Rows are append-only: the
// history side of a material is never updated or deleted.
type PriceHistory struct {
	ID                int64
	MaterialID        int64
	OldPrice          decimal.Decimal
	NewPrice          decimal.Decimal
	PercentChange     decimal.Decimal
	ChangedBy         string
	ChangedAt         time.Time
	VendorID          *int64
	InvoiceNumber     string
	QuantityPurchased *decimal.Decimal
	Notes             string
}

type AlertLevel string

const (
	AlertNone      AlertLevel = "None"
	AlertReview    AlertLevel = "Review"
	AlertImmediate AlertLevel = "Immediate"
)

var (
	reviewFloor    = decimal.NewFromInt(5)
	immediateFloor = decimal.NewFromInt(15)
)

// ClassifyChange buckets a percent change by magnitude. Lower bounds are
// inclusive: exactly 5 is Review, exactly 15 is Immediate.
func ClassifyChange(percentChange decimal.Decimal) AlertLevel {
	abs := percentChange.Abs()
	switch {
	case abs.GreaterThanOrEqual(immediateFloor):
		return AlertImmediate
	case abs.GreaterThanOrEqual(reviewFloor):
		return AlertReview
	default:
		return AlertNone
	}
}

// AlertLevel classifies this history row's change magnitude.
func (h PriceHistory) AlertLevel() AlertLevel {
	return ClassifyChange(h.PercentChange)
}

type Trend string

const (
	TrendIncreasing Trend = "Increasing"
	TrendDecreasing Trend = "Decreasing"
	TrendStable     Trend = "Stable"
)

type PurchaseAction string

const (
	ActionBuyNow PurchaseAction = "BuyNow"
	ActionWait   PurchaseAction = "Wait"
	ActionNormal PurchaseAction = "Normal"
)

// Recommendation is the bulk-purchase advice derived from price trend and
// rolling averages.
type Recommendation struct {
	Material       Material
	CurrentPrice   decimal.Decimal
	Average30Day   decimal.Decimal
	Average90Day   decimal.Decimal
	Trend          Trend
	Action         PurchaseAction
	Recommendation string
}

// PriceAlert is the event handed to the alert sink after a price update
// commits. Delivery is best-effort.
type PriceAlert struct {
	Material      Material
	OldPrice      decimal.Decimal
	NewPrice      decimal.Decimal
	PercentChange decimal.Decimal
	Level         AlertLevel
}
