package qthought

import "fmt"

/*
Consistency composes two inference tables belonging to different observers
into one: for each key of pre, the union over pre's predicted values of
post's entries for those values. pre's output register/time must be post's
input register/time, so the chain reads "from what I saw, what the other
observer saw; from what they saw, what they will find".

Optional reference tables (keyed on the same input as pre) intersect the
merged entries; three-way chains apply Consistency twice, left to right.

A key whose merged set comes out empty while pre predicted something is a
logical contradiction between the two viewpoints. It is surfaced as a
ContradictionError carrying the merged table, because in some experiments
the contradiction is the scientifically interesting outcome: the caller gets
both the signal and the data.
*/
func Consistency(pre, post *InferenceTable, refs ...*InferenceTable) (*InferenceTable, error) {
	if pre.Target != post.Source {
		return nil, &MalformedError{
			Reason: fmt.Sprintf("output of pre (%s) does not match input of post (%s)", pre.Target, post.Source),
		}
	}
	for _, ref := range refs {
		if ref.Source != pre.Source {
			return nil, &MalformedError{
				Reason: fmt.Sprintf("reference table input (%s) does not match pre input (%s)", ref.Source, pre.Source),
			}
		}
	}

	merged := NewInferenceTable(pre.Source, post.Target, nil)
	for key := range pre.Unreachable {
		merged.Unreachable[key] = true
	}

	var contradictions []int
	for key, vals := range pre.Entries {
		union := make(map[int]bool)
		for _, v := range vals {
			for _, out := range post.Entries[v] {
				union[out] = true
			}
		}
		for _, ref := range refs {
			allowed := make(map[int]bool)
			for _, v := range ref.Entries[key] {
				allowed[v] = true
			}
			for v := range union {
				if !allowed[v] {
					delete(union, v)
				}
			}
		}

		entry := make([]int, 0, len(union))
		for v := range union {
			entry = append(entry, v)
		}
		merged.Entries[key] = normalize(entry)

		if len(entry) == 0 && len(vals) > 0 && !merged.Unreachable[key] {
			contradictions = append(contradictions, key)
		}
	}

	if len(contradictions) > 0 {
		return merged, &ContradictionError{Keys: contradictions, Table: merged}
	}
	return merged, nil
}
