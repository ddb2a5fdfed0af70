// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package troncon

import "fmt"

// Merge returns the span of the street covering both a and b. Its start is the start of whichever
// comes first in the table, its end the end of the other one.
func Merge(a, b Segment, table *Table) (Segment, error) {
	if table == nil || !table.Contains(a) || !table.Contains(b) {
		return Segment{}, fmt.Errorf("%w: %s and %s", ErrMergeImpossible, a, b)
	}
	if a == b {
		return a, nil
	}

	first, second := a, b
	if table.index(b) < table.index(a) {
		first, second = b, a
	}
	return Segment{
		NameA:  first.NameA,
		NameB:  second.NameB,
		CoordA: first.CoordA,
		CoordB: second.CoordB,
	}, nil
}
