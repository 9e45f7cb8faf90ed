package difficulty

import (
	"strings"
	"time"
)

var coastalTerms = []string{"beach", "shore", "ocean"}

// Suggest ranks presets that likely apply to a job. It is advisory only;
// nothing is applied automatically.
//
// Ranking: coastal address match first, then the seasonal preset for the
// job's creation month (December exact, June through August is "Summer
// Peak"), then the preset most often applied across the customer's prior
// jobs (majority vote, ties broken by first-seen order). Duplicates are
// dropped, keeping the earlier rank.
func Suggest(address string, createdAt time.Time, presets []Preset, priorAdjustments []Adjustment) []Preset {
	var out []Preset
	seen := map[int64]bool{}
	add := func(p *Preset) {
		if p != nil && !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, *p)
		}
	}

	addr := strings.ToLower(address)
	for _, term := range coastalTerms {
		if strings.Contains(addr, term) {
			add(findByName(presets, "Beach"))
			break
		}
	}

	switch m := createdAt.Month(); {
	case m == time.December:
		add(findByName(presets, "December"))
	case m >= time.June && m <= time.August:
		add(findByName(presets, "Summer Peak"))
	}

	if id, ok := majorityPreset(priorAdjustments); ok {
		add(findByID(presets, id))
	}

	return out
}

func findByName(presets []Preset, name string) *Preset {
	for i := range presets {
		if strings.Contains(presets[i].Name, name) {
			return &presets[i]
		}
	}
	return nil
}

func findByID(presets []Preset, id int64) *Preset {
	for i := range presets {
		if presets[i].ID == id {
			return &presets[i]
		}
	}
	return nil
}

// majorityPreset returns the preset id used most often in prior adjustments.
// Ties go to the preset that appeared first in the history.
func majorityPreset(adjustments []Adjustment) (int64, bool) {
	counts := map[int64]int{}
	var order []int64
	for _, a := range adjustments {
		if a.PresetID == nil {
			continue
		}
		if _, ok := counts[*a.PresetID]; !ok {
			order = append(order, *a.PresetID)
		}
		counts[*a.PresetID]++
	}

	var best int64
	bestCount := 0
	for _, id := range order {
		if counts[id] > bestCount {
			best, bestCount = id, counts[id]
		}
	}
	return best, bestCount > 0
}
