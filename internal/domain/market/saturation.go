package market

// RecoverSaturation moves every saturation below 1.0 toward 1.0 by rate times
// the remaining deficit, capped at 1.0. It returns the new values and whether
// any value changed. The input map is not modified.
func RecoverSaturation(rate float64, current map[string]float64) (map[string]float64, bool) {
	out := make(map[string]float64, len(current))
	changed := false
	for name, sat := range current {
		if sat < 1.0 {
			next := min(1.0, sat+(1.0-sat)*rate)
			if next != sat {
				changed = true
			}
			sat = next
		}
		out[name] = sat
	}
	return out, changed
}
