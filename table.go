package qthought

import (
	"fmt"
	"sort"
	"strings"
)

// RegisterAt names a register at a protocol time.
type RegisterAt struct {
	Register string
	Time     int
}

func (r RegisterAt) String() string {
	return fmt.Sprintf("%s:t%d", r.Register, r.Time)
}

/*
InferenceTable relates the value of a source register at a source time to
the set of values the target register can actually be found to hold at the
target time, derived by branch enumeration. Keys whose branch carries zero
amplitude are reachability witnesses of measure zero: they are flagged in
Unreachable instead of being silently listed with made-up entries.
*/
type InferenceTable struct {
	Source  RegisterAt
	Target  RegisterAt
	Entries map[int][]int

	Unreachable map[int]bool
}

// NewInferenceTable builds a table with the entries normalized: value sets
// sorted ascending and de-duplicated.
func NewInferenceTable(source, target RegisterAt, entries map[int][]int) *InferenceTable {
	normalized := make(map[int][]int, len(entries))
	for key, vals := range entries {
		normalized[key] = normalize(vals)
	}
	return &InferenceTable{
		Source:      source,
		Target:      target,
		Entries:     normalized,
		Unreachable: make(map[int]bool),
	}
}

// IdentityTable maps every value of a register of the given width to itself.
// It is the unit of the consistency merge.
func IdentityTable(at RegisterAt, width int) *InferenceTable {
	entries := make(map[int][]int, 1<<width)
	for v := 0; v < 1<<width; v++ {
		entries[v] = []int{v}
	}
	return NewInferenceTable(at, at, entries)
}

func normalize(vals []int) []int {
	seen := make(map[int]bool, len(vals))
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// Get returns the value set for a key, nil when absent.
func (t *InferenceTable) Get(key int) []int {
	return append([]int(nil), t.Entries[key]...)
}

// Keys returns the table's keys ascending.
func (t *InferenceTable) Keys() []int {
	keys := make([]int, 0, len(t.Entries))
	for k := range t.Entries {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Equal reports whether two tables relate the same registers and times with
// identical entries and reachability flags.
func (t *InferenceTable) Equal(other *InferenceTable) bool {
	if t.Source != other.Source || t.Target != other.Target {
		return false
	}
	if len(t.Entries) != len(other.Entries) {
		return false
	}
	for key, vals := range t.Entries {
		theirs, ok := other.Entries[key]
		if !ok || len(vals) != len(theirs) {
			return false
		}
		for i, v := range vals {
			if theirs[i] != v {
				return false
			}
		}
	}
	if len(t.Unreachable) != len(other.Unreachable) {
		return false
	}
	for key := range t.Unreachable {
		if !other.Unreachable[key] {
			return false
		}
	}
	return true
}

func (t *InferenceTable) String() string {
	var b strings.Builder
	header := fmt.Sprintf("%-22s| Out: (%s)", fmt.Sprintf("In:(%s)", t.Source), t.Target)
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", len(header)+7) + "\n")
	for _, key := range t.Keys() {
		fmt.Fprintf(&b, "  %-12d| %v\n", key, t.Entries[key])
	}
	if len(t.Unreachable) > 0 {
		var keys []int
		for k := range t.Unreachable {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		fmt.Fprintf(&b, "  unreachable: %v\n", keys)
	}
	return b.String()
}
