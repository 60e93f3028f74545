package records

import (
	"sort"
	"strconv"
)

// KeyFunc extracts a grouping key from a record. An empty key drops the
// record from the grouping.
type KeyFunc func(Record) string

// ValueFunc reduces the records of one group to a number.
type ValueFunc func(group []Record) float64

// Column returns a KeyFunc reading the first non-empty column of cols.
func Column(cols ...string) KeyFunc {
	return func(r Record) string { return r.Key(cols...) }
}

// Sum adds up col over a group. Missing or non-numeric cells count as 0.
func Sum(col string) ValueFunc {
	return func(group []Record) float64 {
		var total float64
		for _, r := range group {
			total += r.Number(col)
		}
		return total
	}
}

// Count counts the records of a group.
func Count() ValueFunc {
	return func(group []Record) float64 { return float64(len(group)) }
}

// Grouped is a one-key aggregation. Keys are in first-seen order until the
// caller sorts them.
type Grouped struct {
	Keys   []string
	Values map[string]float64
}

// Get returns the value for key, 0 if the key was never observed.
func (g Grouped) Get(key string) float64 { return g.Values[key] }

// Max returns the largest value, 0 for an empty grouping.
func (g Grouped) Max() float64 {
	var m float64
	for _, v := range g.Values {
		if v > m {
			m = v
		}
	}
	return m
}

// Total returns the sum of all values.
func (g Grouped) Total() float64 {
	var t float64
	for _, v := range g.Values {
		t += v
	}
	return t
}

// GroupBy groups recs by key and reduces each group with val.
func GroupBy(recs []Record, key KeyFunc, val ValueFunc) Grouped {
	groups := make(map[string][]Record)
	var order []string
	for _, r := range recs {
		k := key(r)
		if k == "" {
			continue
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	g := Grouped{Keys: order, Values: make(map[string]float64, len(order))}
	for _, k := range order {
		g.Values[k] = val(groups[k])
	}
	return g
}

// Nested is a two-key aggregation. Every secondary key appears under every
// primary key, with 0 where no record contributed.
type Nested struct {
	Primary   []string
	Secondary []string
	Values    map[string]map[string]float64
}

// Get returns the value at (p, s).
func (n Nested) Get(p, s string) float64 { return n.Values[p][s] }

// Total returns the sum of the secondary values under p.
func (n Nested) Total(p string) float64 {
	var t float64
	for _, v := range n.Values[p] {
		t += v
	}
	return t
}

// Layer returns the values of secondary key s, one per primary key in order.
func (n Nested) Layer(s string) []float64 {
	out := make([]float64, len(n.Primary))
	for i, p := range n.Primary {
		out[i] = n.Values[p][s]
	}
	return out
}

// GroupBy2 groups recs by a primary and a secondary key. forced lists
// secondary keys that must be present (in that order, ahead of any other
// observed key) even when no record carries them, so that stacked layers
// keep a stable order.
func GroupBy2(recs []Record, primary, secondary KeyFunc, val ValueFunc, forced ...string) Nested {
	type pair struct{ p, s string }
	groups := make(map[pair][]Record)
	var pOrder, sOrder []string
	seenP := make(map[string]bool)
	seenS := make(map[string]bool)
	for _, s := range forced {
		if !seenS[s] {
			seenS[s] = true
			sOrder = append(sOrder, s)
		}
	}
	for _, r := range recs {
		p, s := primary(r), secondary(r)
		if p == "" || s == "" {
			continue
		}
		if !seenP[p] {
			seenP[p] = true
			pOrder = append(pOrder, p)
		}
		if !seenS[s] {
			seenS[s] = true
			sOrder = append(sOrder, s)
		}
		k := pair{p, s}
		groups[k] = append(groups[k], r)
	}
	n := Nested{
		Primary:   pOrder,
		Secondary: sOrder,
		Values:    make(map[string]map[string]float64, len(pOrder)),
	}
	for _, p := range pOrder {
		row := make(map[string]float64, len(sOrder))
		for _, s := range sOrder {
			if g, ok := groups[pair{p, s}]; ok {
				row[s] = val(g)
			} else {
				row[s] = 0
			}
		}
		n.Values[p] = row
	}
	return n
}

// ScaleMax returns the maximum of values for building a scale domain, or 1
// when that maximum is 0 so the axis never collapses. It must not be used
// for displayed values.
func ScaleMax(values ...float64) float64 {
	var m float64
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	if m == 0 {
		return 1
	}
	return m
}

// SortNumeric sorts keys by numeric value ascending; keys that do not parse
// sort after the numeric ones, lexicographically.
func SortNumeric(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := strconv.ParseFloat(keys[i], 64)
		b, errB := strconv.ParseFloat(keys[j], 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
}

// SortLex sorts keys lexicographically.
func SortLex(keys []string) {
	sort.Strings(keys)
}

// SortByOrder sorts keys by their position in order; keys not in order keep
// their relative order after the known ones.
func SortByOrder(keys []string, order []string) {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}
	pos := func(k string) int {
		if r, ok := rank[k]; ok {
			return r
		}
		return len(order)
	}
	sort.SliceStable(keys, func(i, j int) bool { return pos(keys[i]) < pos(keys[j]) })
}

// Distinct returns the distinct non-empty values of the first matching
// column of cols, in first-seen order.
func Distinct(recs []Record, cols ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range recs {
		k := r.Key(cols...)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
