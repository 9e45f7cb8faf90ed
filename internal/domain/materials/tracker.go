package materials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hartline-electric/backoffice/internal/infra/metrics"
)

var ErrMaterialNotFound = errors.New("material not found")

// Store is the persistence surface the tracker needs. *Repo satisfies it.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Material, error)
	RecordPriceChange(ctx context.Context, materialID int64, newPrice decimal.Decimal, h PriceHistory) (*PriceHistory, *Material, error)
	PriceHistorySince(ctx context.Context, materialID int64, since time.Time) ([]PriceHistory, error)
}

// AlertSink receives price-change alerts. Best-effort; no delivery guarantee.
type AlertSink interface {
	Notify(ctx context.Context, alert PriceAlert) error
}

// Tracker owns material price updates: it writes the history transition,
// classifies the change, and pushes alerts out of band.
type Tracker struct {
	store Store
	sink  AlertSink
	log   *slog.Logger
	now   func() time.Time
}

func NewTracker(store Store, sink AlertSink, log *slog.Logger) *Tracker {
	return &Tracker{store: store, sink: sink, log: log, now: time.Now}
}

// UpdateOption attaches provenance to the history row.
type UpdateOption func(*PriceHistory)

func WithVendor(vendorID int64) UpdateOption {
	return func(h *PriceHistory) { h.VendorID = &vendorID }
}

func WithInvoice(invoiceNumber string) UpdateOption {
	return func(h *PriceHistory) { h.InvoiceNumber = invoiceNumber }
}

func WithQuantity(qty decimal.Decimal) UpdateOption {
	return func(h *PriceHistory) { h.QuantityPurchased = &qty }
}

// UpdatePrice records a price transition for a material. The history row and
// the current-price mutation commit together; the alert notification happens
// after commit, asynchronously, and never blocks or fails the update.
func (t *Tracker) UpdatePrice(ctx context.Context, materialID int64, newPrice decimal.Decimal, actor string, opts ...UpdateOption) (*PriceHistory, error) {
	h := PriceHistory{ChangedBy: actor}
	for _, opt := range opts {
		opt(&h)
	}

	hist, mat, err := t.store.RecordPriceChange(ctx, materialID, newPrice, h)
	if err != nil {
		return nil, fmt.Errorf("record price change: %w", err)
	}
	metrics.PriceUpdatesTotal.Inc()

	level := hist.AlertLevel()
	metrics.PriceAlertsTotal.WithLabelValues(string(level)).Inc()
	if level != AlertNone && t.sink != nil {
		alert := PriceAlert{
			Material:      *mat,
			OldPrice:      hist.OldPrice,
			NewPrice:      hist.NewPrice,
			PercentChange: hist.PercentChange,
			Level:         level,
		}
		go t.notify(alert)
	}

	return hist, nil
}

func (t *Tracker) notify(alert PriceAlert) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.sink.Notify(ctx, alert); err != nil {
		t.log.Warn("price alert delivery failed",
			"material_id", alert.Material.ID, "level", string(alert.Level), "err", err)
	}
}

// AnalyzePriceTrend fits a least-squares line through the price points of
// the window, chronological index on the x axis. The slope, normalized by
// the mean price into percent per step, decides the trend: above 1 is
// Increasing, below -1 Decreasing. Fewer than two points is Stable.
func (t *Tracker) AnalyzePriceTrend(ctx context.Context, materialID int64, windowDays int) (Trend, error) {
	since := t.now().AddDate(0, 0, -windowDays)
	history, err := t.store.PriceHistorySince(ctx, materialID, since)
	if err != nil {
		return TrendStable, err
	}
	if len(history) < 2 {
		return TrendStable, nil
	}

	n := float64(len(history))
	var sumX, sumY, sumXY, sumX2 float64
	for i, h := range history {
		x := float64(i)
		y := h.NewPrice.InexactFloat64()
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	mean := sumY / n
	if denom == 0 || mean == 0 {
		return TrendStable, nil
	}
	slope := (n*sumXY - sumX*sumY) / denom
	trendPct := slope / mean * 100

	switch {
	case trendPct > 1:
		return TrendIncreasing, nil
	case trendPct < -1:
		return TrendDecreasing, nil
	default:
		return TrendStable, nil
	}
}

// AveragePrice is the mean recorded price over the last N days, falling back
// to the current price when there is no history in the window.
func (t *Tracker) AveragePrice(ctx context.Context, materialID int64, days int) (decimal.Decimal, error) {
	since := t.now().AddDate(0, 0, -days)
	history, err := t.store.PriceHistorySince(ctx, materialID, since)
	if err != nil {
		return decimal.Zero, err
	}
	if len(history) == 0 {
		m, err := t.store.GetByID(ctx, materialID)
		if err != nil {
			return decimal.Zero, err
		}
		if m == nil {
			return decimal.Zero, ErrMaterialNotFound
		}
		return m.CurrentPrice, nil
	}

	sum := decimal.Zero
	for _, h := range history {
		sum = sum.Add(h.NewPrice)
	}
	return sum.Div(decimal.NewFromInt(int64(len(history)))).Round(2), nil
}

// Recommend produces bulk-purchase advice from the trend and the 30/90-day
// averages.
func (t *Tracker) Recommend(ctx context.Context, materialID int64) (*Recommendation, error) {
	m, err := t.store.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMaterialNotFound
	}

	trend, err := t.AnalyzePriceTrend(ctx, materialID, 90)
	if err != nil {
		return nil, err
	}
	avg30, err := t.AveragePrice(ctx, materialID, 30)
	if err != nil {
		return nil, err
	}
	avg90, err := t.AveragePrice(ctx, materialID, 90)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{
		Material:     *m,
		CurrentPrice: m.CurrentPrice,
		Average30Day: avg30,
		Average90Day: avg90,
		Trend:        trend,
	}
	switch {
	case trend == TrendIncreasing && m.CurrentPrice.LessThan(avg30):
		rec.Action = ActionBuyNow
		rec.Recommendation = "Buy Now - Price is below 30-day average and trending up"
	case trend == TrendDecreasing:
		rec.Action = ActionWait
		rec.Recommendation = "Wait - Price is trending down"
	default:
		rec.Action = ActionNormal
		rec.Recommendation = "Buy as needed - Price is stable"
	}
	return rec, nil
}
