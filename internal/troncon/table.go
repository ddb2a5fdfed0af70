// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package troncon

import (
	"slices"
	"strings"
)

// LabelSeparator joins the names of the cross-streets meeting at a crossing.
const LabelSeparator = "/"

// Table holds the segments of a street in street order.
type Table struct {
	street   string
	segments []Segment
	spans    [][2]int
	coords   []GeoPoint
}

// BuildTable derives the segments of street from its crossings, given in street order. Only
// crossings shared with at least one other named way count as boundaries. A boundary is labeled
// with the other ways' names; consecutive boundaries with the same label do not form a segment.
func BuildTable(crossings []Crossing, street string) *Table {
	table := &Table{
		street: street,
		coords: make([]GeoPoint, len(crossings)),
	}

	prev, prevLabel := -1, ""
	for i, crossing := range crossings {
		table.coords[i] = crossing.Coord
		label, ok := boundaryLabel(crossing, street)
		if !ok {
			continue
		}
		if prev >= 0 && label != prevLabel {
			table.segments = append(table.segments, Segment{
				NameA:  prevLabel,
				NameB:  label,
				CoordA: crossings[prev].Coord,
				CoordB: crossing.Coord,
			})
			table.spans = append(table.spans, [2]int{prev, i})
		}
		prev, prevLabel = i, label
	}
	return table
}

func boundaryLabel(crossing Crossing, street string) (string, bool) {
	if crossing.Err != nil || len(crossing.Names) < 2 {
		return "", false
	}
	idx := slices.Index(crossing.Names, street)
	if idx < 0 {
		return "", false
	}
	others := slices.Delete(slices.Clone(crossing.Names), idx, idx+1)
	return strings.Join(others, LabelSeparator), true
}

// Street returns the name of the street the table was built for.
func (t *Table) Street() string {
	return t.street
}

// Segments returns the segments in street order.
func (t *Table) Segments() []Segment {
	return slices.Clone(t.segments)
}

func (t *Table) Len() int {
	return len(t.segments)
}

// Lookup returns the first segment bounded by nameA and nameB.
func (t *Table) Lookup(nameA, nameB string) (Segment, bool) {
	for _, segment := range t.segments {
		if segment.NameA == nameA && segment.NameB == nameB {
			return segment, true
		}
	}
	return Segment{}, false
}

// Contains reports whether segment is part of the table.
func (t *Table) Contains(segment Segment) bool {
	return t.index(segment) >= 0
}

// Polyline returns the street coordinates from the start of the first to the end of the last of
// the given segments, boundaries included. It returns nil if a segment is not part of the table.
func (t *Table) Polyline(segments ...Segment) []GeoPoint {
	if len(segments) == 0 {
		return nil
	}
	begin, end := len(t.coords), -1
	for _, segment := range segments {
		idx := t.index(segment)
		if idx < 0 {
			return nil
		}
		begin = min(begin, t.spans[idx][0])
		end = max(end, t.spans[idx][1])
	}
	return slices.Clone(t.coords[begin : end+1])
}

func (t *Table) index(segment Segment) int {
	return slices.Index(t.segments, segment)
}
