package estimates

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusEditable(t *testing.T) {
	assert.True(t, StatusDraft.Editable())
	assert.True(t, StatusSent.Editable())
	assert.False(t, StatusApproved.Editable())
	assert.False(t, StatusRejected.Editable())
	assert.False(t, StatusExpired.Editable())
	assert.False(t, StatusConverted.Editable())
}

func TestStatusConvertible(t *testing.T) {
	assert.True(t, StatusApproved.Convertible())
	for _, s := range []Status{StatusDraft, StatusSent, StatusRejected, StatusExpired, StatusConverted} {
		assert.False(t, s.Convertible(), "status %s", s)
	}
}

func TestStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusApproved, true},
		{StatusSent, StatusDraft, true},
		{StatusSent, StatusApproved, true},
		{StatusSent, StatusRejected, true},
		{StatusSent, StatusExpired, true},

		// Approved is immutable except for conversion.
		{StatusApproved, StatusDraft, false},
		{StatusApproved, StatusSent, false},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusExpired, false},

		// Rejected and expired estimates reopen as drafts only.
		{StatusRejected, StatusDraft, true},
		{StatusRejected, StatusApproved, false},
		{StatusExpired, StatusDraft, true},
		{StatusExpired, StatusSent, false},

		{StatusConverted, StatusDraft, false},

		// Converted is owned by the conversion transaction.
		{StatusDraft, StatusConverted, false},
		{StatusApproved, StatusConverted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestConverted(t *testing.T) {
	e := &Estimate{Status: StatusApproved}
	assert.False(t, e.Converted())

	jobID := int64(12)
	e.ConvertedToJobID = &jobID
	assert.True(t, e.Converted())
}

func TestLineItemsFlattensInRoomOrder(t *testing.T) {
	e := &Estimate{Rooms: []Room{
		{Name: "Kitchen", Items: []LineItem{{ItemCode: "hh"}, {ItemCode: "s"}}},
		{Name: "Garage", Items: []LineItem{{ItemCode: "panel"}}},
	}}

	items := e.LineItems()
	require.Len(t, items, 3)
	assert.Equal(t, "hh", items[0].ItemCode)
	assert.Equal(t, "s", items[1].ItemCode)
	assert.Equal(t, "panel", items[2].ItemCode)
}

func TestLineItemTotalPrice(t *testing.T) {
	li := LineItem{Quantity: 3, UnitPrice: decimal.RequireFromString("12.50")}
	assert.True(t, li.TotalPrice().Equal(decimal.RequireFromString("37.50")))
}

func TestLineItemEffectiveMaterialCost(t *testing.T) {
	li := LineItem{Quantity: 2, UnitPrice: decimal.RequireFromString("10")}
	assert.True(t, li.EffectiveMaterialCost().Equal(decimal.RequireFromString("20")))

	li.MaterialCost = decimal.RequireFromString("7.25")
	assert.True(t, li.EffectiveMaterialCost().Equal(decimal.RequireFromString("7.25")))
}
