package stage

import "strings"

// Work stages, in schedule order.
const (
	Demo    = "Demo"
	Rough   = "Rough"
	Service = "Service"
	Finish  = "Finish"
	Extra   = "Extra"
)

// Order gives the display/schedule position of a stage name. Unknown stages
// sort last.
func Order(name string) int {
	switch name {
	case Demo:
		return 0
	case Rough:
		return 1
	case Service:
		return 2
	case Finish:
		return 3
	case Extra:
		return 4
	default:
		return 5
	}
}

// rule groups keywords that map to one stage. Rules are evaluated in slice
// order and the first match wins, so Service keywords shadow Rough ones.
type rule struct {
	stage    string
	keywords []string
}

var rules = []rule{
	{Service, []string{"panel", "meter", "service", "main", "disconnect"}},
	{Rough, []string{
		"wire", "12/2", "14/2", "10/2", "10/3", "12/3", "14/3",
		"pipe", "conduit", "box", "jbox", "romex", "thhn", "ground",
	}},
	{Demo, []string{"demo", "remove", "demolish"}},
}

// Determine maps a catalog item code to its work stage. Matching is
// case-insensitive: an exact keyword hit wins first, then a substring hit,
// both walked in fixed rule order. Anything unmatched lands in Finish.
func Determine(itemCode string) string {
	code := strings.ToLower(strings.TrimSpace(itemCode))
	if code == "" {
		return Finish
	}

	for _, r := range rules {
		for _, kw := range r.keywords {
			if code == kw {
				return r.stage
			}
		}
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(code, kw) {
				return r.stage
			}
		}
	}
	return Finish
}
