package order

import "math"

// Quantities maps a dish id to a quantity. In a round every value is > 0;
// a missing key means zero. As a delta set values may be negative.
type Quantities map[int64]int

// Clone returns an independent copy. The result is never nil.
func (q Quantities) Clone() Quantities {
	out := make(Quantities, len(q))
	for id, n := range q {
		out[id] = n
	}
	return out
}

// Apply returns a new round with every delta added to q, clamped at zero.
// Keys whose quantity drops to zero are removed. q is left untouched.
func (q Quantities) Apply(deltas Quantities) Quantities {
	next := q.Clone()
	for id, delta := range deltas {
		n := addSaturating(next[id], delta)
		if n > 0 {
			next[id] = n
		} else {
			delete(next, id)
		}
	}
	return next
}

// Total is the number of items across all dishes.
func (q Quantities) Total() int {
	total := 0
	for _, n := range q {
		total = addSaturating(total, n)
	}
	return total
}

func addSaturating(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	if b < 0 && a < math.MinInt-b {
		return math.MinInt
	}
	return a + b
}
