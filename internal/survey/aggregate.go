package survey

import (
	"sort"
)

// mean accumulates a running average.
type mean struct {
	sum   float64
	count int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.count++
}

func (m mean) value() float64 {
	return m.sum / float64(m.count)
}

// stateMean is the average value for one location.
type stateMean struct {
	state string
	mean  float64
}

// stateMeans averages rows per location, ordered by ascending mean. Ties are
// broken by name so results are deterministic.
func stateMeans(rows []record) []stateMean {
	acc := make(map[string]*mean)
	for _, r := range rows {
		m, ok := acc[r.location]
		if !ok {
			m = &mean{}
			acc[r.location] = m
		}
		m.add(r.value)
	}

	out := make([]stateMean, 0, len(acc))
	for state, m := range acc {
		out = append(out, stateMean{state: state, mean: m.value()})
	}
	sortStateMeans(out, true)
	return out
}

func sortStateMeans(sm []stateMean, ascending bool) {
	sort.Slice(sm, func(i, j int) bool {
		if sm[i].mean != sm[j].mean {
			if ascending {
				return sm[i].mean < sm[j].mean
			}
			return sm[i].mean > sm[j].mean
		}
		return sm[i].state < sm[j].state
	})
}

// globalMean averages every row. ok is false when there are no rows.
func globalMean(rows []record) (float64, bool) {
	if len(rows) == 0 {
		return 0, false
	}
	var m mean
	for _, r := range rows {
		m.add(r.value)
	}
	return m.value(), true
}

// categoryKey identifies one (location, stratification, category) group.
type categoryKey struct {
	location       string
	stratification string
	category       string
}

// categoryMean is the average value for one stratified group.
type categoryMean struct {
	categoryKey
	mean float64
}

// categoryMeans averages rows per (location, stratification, category),
// ordered by those fields. Rows without a stratification are left out.
func categoryMeans(rows []record) []categoryMean {
	acc := make(map[categoryKey]*mean)
	for _, r := range rows {
		if r.category == "" || r.stratification == "" {
			continue
		}
		k := categoryKey{location: r.location, stratification: r.stratification, category: r.category}
		m, ok := acc[k]
		if !ok {
			m = &mean{}
			acc[k] = m
		}
		m.add(r.value)
	}

	out := make([]categoryMean, 0, len(acc))
	for k, m := range acc {
		out = append(out, categoryMean{categoryKey: k, mean: m.value()})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.location != b.location {
			return a.location < b.location
		}
		if a.stratification != b.stratification {
			return a.stratification < b.stratification
		}
		return a.category < b.category
	})
	return out
}
