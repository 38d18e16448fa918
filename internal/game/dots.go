package game

// applyDot adds or refreshes a damage-over-time stack. Stacks are keyed by
// source; re-applying the same source keeps the strongest dps and resets the
// remaining time instead of stacking duplicates. Returns true when this is
// the first stack from that source (rising edge for burnStateChanged).
func applyDot(stacks *[]DotStack, source string, dps, duration float64) bool {
	for i := range *stacks {
		s := &(*stacks)[i]
		if s.Source == source {
			if dps > s.DPS {
				s.DPS = dps
			}
			s.TimeLeft = duration
			return false
		}
	}
	*stacks = append(*stacks, DotStack{Source: source, DPS: dps, TimeLeft: duration})
	return true
}

// tickDots advances every stack by dt and returns the summed damage for the
// tick plus whether any stack expired. Expired stacks are filtered in place.
func tickDots(stacks *[]DotStack, dt float64) (damage float64, expired bool) {
	n := 0
	for _, s := range *stacks {
		damage += s.DPS * dt
		s.TimeLeft -= dt
		if s.TimeLeft > 0 {
			(*stacks)[n] = s
			n++
		} else {
			expired = true
		}
	}
	*stacks = (*stacks)[:n]
	return damage, expired
}

// hasDotSource reports whether a stack from the given source is active.
func hasDotSource(stacks []DotStack, source string) bool {
	for _, s := range stacks {
		if s.Source == source {
			return true
		}
	}
	return false
}
