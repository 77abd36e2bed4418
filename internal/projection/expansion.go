package projection

// Expansion maps roadmap month labels to their expanded state. A month that is absent is
// collapsed. Expansion values are never modified in place; Toggle returns a new map.
type Expansion map[string]bool

// Expanded reports whether month is currently expanded
func (e Expansion) Expanded(month string) bool {
	return e[month]
}

// Toggle flips month and returns the resulting state, leaving e and every other month untouched
func (e Expansion) Toggle(month string) Expansion {
	next := make(Expansion, len(e)+1)
	for m, open := range e {
		if open {
			next[m] = true
		}
	}
	if e[month] {
		delete(next, month)
	} else {
		next[month] = true
	}
	return next
}

// Clone returns an independent copy holding only expanded months
func (e Expansion) Clone() Expansion {
	next := make(Expansion, len(e))
	for m, open := range e {
		if open {
			next[m] = true
		}
	}
	return next
}
