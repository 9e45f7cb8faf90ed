package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermine(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"panel", Service},
		{"PANEL", Service},
		{"  meter  ", Service},
		{"main", Service},
		{"disconnect", Service},
		{"wire", Rough},
		{"12/2", Rough},
		{"romex", Rough},
		{"jbox", Rough},
		{"demo", Demo},
		{"remove", Demo},
		{"hh", Finish},
		{"s", Finish},
		{"", Finish},
		{"something-else", Finish},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Determine(tc.code), "code %q", tc.code)
	}
}

func TestDetermineSubstringFallback(t *testing.T) {
	// No exact keyword hit; substring matching walks rules in order, so a
	// Service keyword inside the code shadows a Rough one.
	assert.Equal(t, Service, Determine("panel-box"))
	assert.Equal(t, Rough, Determine("thhn-500"))
	assert.Equal(t, Demo, Determine("demolish-wall"))
}

func TestDetermineExactBeatsSubstring(t *testing.T) {
	// "ground" is an exact Rough keyword even though it contains no other
	// keywords; "grounding-kit" only matches by substring.
	assert.Equal(t, Rough, Determine("ground"))
	assert.Equal(t, Rough, Determine("grounding-kit"))
}

func TestOrder(t *testing.T) {
	assert.Equal(t, 0, Order(Demo))
	assert.Equal(t, 1, Order(Rough))
	assert.Equal(t, 2, Order(Service))
	assert.Equal(t, 3, Order(Finish))
	assert.Equal(t, 4, Order(Extra))
	assert.Equal(t, 5, Order("Bogus"))
}

func TestPermitCategory(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"s", PermitSwitches},
		{"S", PermitSwitches},
		{"3w", PermitSwitches},
		{"dim", PermitSwitches},
		{"o", PermitReceptacles},
		{"fridge", PermitReceptacles},
		{"hh", PermitLights},
		{"pend", PermitLights},
		{"ex-l", PermitFans},
		{"oven", Permit240V},
		{"cook", Permit240V},
		{"gfi", PermitGFCI},
		{"arl", PermitGFCI},
		{"wire", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PermitCategory(tc.code), "code %q", tc.code)
	}
}
