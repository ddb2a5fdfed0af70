// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package troncon

import (
	"cmp"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Assign returns the segment of table nearest to p and the distance to it. Distances are planar
// in degrees. A segment whose perpendicular foot lies strictly between its endpoints is measured
// by the perpendicular distance. When no segment qualifies, every segment is measured by the
// distance to its nearest endpoint. Ties go to the segment first in street order.
func Assign(p GeoPoint, table *Table) (Segment, float64, error) {
	if table == nil || len(table.segments) == 0 {
		return Segment{}, 0, ErrEmptyTable
	}
	point := p.Point()

	best, bestDist := -1, math.Inf(1)
	for i, segment := range table.segments {
		dist, ok := perpendicularDistance(point, segment.CoordA.Point(), segment.CoordB.Point())
		if ok && dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		for i, segment := range table.segments {
			dist := endpointDistance(point, segment.CoordA.Point(), segment.CoordB.Point())
			if dist < bestDist {
				best, bestDist = i, dist
			}
		}
	}
	return table.segments[best], bestDist, nil
}

// perpendicularDistance returns the distance from p to the line through a and b. It is only
// valid if the foot of the perpendicular lies strictly inside the segment.
func perpendicularDistance(p, a, b orb.Point) (float64, bool) {
	if dot(sub(p, a), sub(p, b)) >= 0 {
		return 0, false
	}
	ab, ap := sub(b, a), sub(p, a)
	crossProduct := ab[0]*ap[1] - ab[1]*ap[0]
	return math.Abs(crossProduct) / planar.Distance(a, b), true
}

func endpointDistance(p, a, b orb.Point) float64 {
	return min(planar.Distance(p, a), planar.Distance(p, b))
}

func sub(a, b orb.Point) orb.Point {
	return orb.Point{a[0] - b[0], a[1] - b[1]}
}

func dot(a, b orb.Point) float64 {
	return a[0]*b[0] + a[1]*b[1]
}

// Rank returns the 1-based position of each point along segment, ordered by the distance to the
// segment's start. Equal distances keep the input order.
func Rank(points []GeoPoint, segment Segment) []int {
	start := segment.CoordA.Point()
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(planar.Distance(start, points[a].Point()), planar.Distance(start, points[b].Point()))
	})

	ranks := make([]int, len(points))
	for pos, idx := range order {
		ranks[idx] = pos + 1
	}
	return ranks
}
