package stage

import "strings"

// Permit categories counted on conversion.
const (
	PermitSwitches    = "Switches"
	PermitReceptacles = "Receptacles"
	PermitLights      = "Lights"
	PermitFans        = "Fans"
	Permit240V        = "240V Circuits"
	PermitGFCI        = "GFCI"
)

var permitCodes = map[string]string{
	"s":   PermitSwitches,
	"3w":  PermitSwitches,
	"dim": PermitSwitches,

	"o":      PermitReceptacles,
	"fridge": PermitReceptacles,
	"micro":  PermitReceptacles,
	"dw":     PermitReceptacles,
	"hood":   PermitReceptacles,

	"hh":   PermitLights,
	"pend": PermitLights,
	"sc":   PermitLights,
	"van":  PermitLights,

	"ex-l": PermitFans,

	"oven": Permit240V,
	"cook": Permit240V,

	"gfi": PermitGFCI,
	"arl": PermitGFCI,
}

// PermitCategory returns the permit bucket for an item code, or "" when the
// code does not count toward any permit line.
func PermitCategory(itemCode string) string {
	return permitCodes[strings.ToLower(strings.TrimSpace(itemCode))]
}
