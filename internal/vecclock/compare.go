package vecclock

// Ordering is the causal relation between two vectors.
type Ordering int

const (
	// Before indicates a happened before b.
	Before Ordering = iota
	// After indicates a happened after b.
	After
	// Concurrent indicates neither dominates.
	Concurrent
	// Equal indicates identical vectors.
	Equal
)

func (o Ordering) String() string {
	switch o {
	case Before:
		return "before"
	case After:
		return "after"
	case Concurrent:
		return "concurrent"
	case Equal:
		return "equal"
	default:
		return "unknown"
	}
}

// Compare returns the relation of a to b. Missing trailing entries count
// as zero.
func Compare(a, b []uint64) Ordering {
	var less, greater bool
	for i := range max(len(a), len(b)) {
		av, bv := at(a, i), at(b, i)
		if av < bv {
			less = true
		} else if av > bv {
			greater = true
		}
	}

	switch {
	case less && greater:
		return Concurrent
	case less:
		return Before
	case greater:
		return After
	default:
		return Equal
	}
}

func at(v []uint64, i int) uint64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
