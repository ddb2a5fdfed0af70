// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/osm"

	"github.com/wneessen/troncon/internal/logger"
	"github.com/wneessen/troncon/internal/troncon"
)

// Record is the result for a single point or a pair of points. In single point mode Segment is
// the segment the point lies on and Rank its position within it. In pair mode Segment is the
// span covering both points and Rank is zero. Names are stripped of diacritics.
type Record struct {
	Points   []troncon.GeoPoint
	Street   string
	City     string
	Segment  troncon.Segment
	Rank     int
	Polyline []troncon.GeoPoint
	Err      error
}

// street is a resolved street with its segment table.
type street struct {
	name  string
	table *troncon.Table
}

// ResolvePoints resolves each point to its segment. Points on the same segment of the same
// street are ranked along it and share the city resolved for the first of them. Records are
// returned in the order of points; a failing point only fails its own record.
func (r *Resolver) ResolvePoints(ctx context.Context, points []troncon.GeoPoint) []Record {
	type groupKey struct {
		street  string
		segment troncon.Segment
	}
	records := make([]Record, len(points))
	streets := make(map[osm.WayID]*street)
	groups := make(map[groupKey][]int)
	var order []groupKey

	for i, point := range points {
		records[i].Points = []troncon.GeoPoint{point}
		s, err := r.resolveStreet(ctx, point, streets)
		if err != nil {
			r.fail(&records[i], err)
			continue
		}
		segment, dist, err := troncon.Assign(point, s.table)
		if err != nil {
			r.fail(&records[i], fmt.Errorf("failed to assign %s to a segment of %s: %w", point, s.name, err))
			continue
		}
		r.logger.Debug("point assigned", slog.String("point", point.String()), slog.String("street", s.name),
			slog.String("segment", segment.String()), slog.Float64("distance", dist))

		records[i].Street = StripDiacritics(s.name)
		records[i].Segment = stripSegment(segment)
		records[i].Polyline = s.table.Polyline(segment)

		key := groupKey{street: s.name, segment: segment}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range order {
		indexes := groups[key]
		grouped := make([]troncon.GeoPoint, len(indexes))
		for j, idx := range indexes {
			grouped[j] = points[idx]
		}
		ranks := troncon.Rank(grouped, key.segment)
		city, err := r.NearestCity(ctx, points[indexes[0]])
		for j, idx := range indexes {
			records[idx].Rank = ranks[j]
			if err != nil {
				r.fail(&records[idx], err)
				continue
			}
			records[idx].City = StripDiacritics(city)
		}
	}
	return records
}

// ResolvePairs resolves each pair to the span of the first point's street covering both points.
// The city is resolved for the first point.
func (r *Resolver) ResolvePairs(ctx context.Context, pairs [][2]troncon.GeoPoint) []Record {
	records := make([]Record, len(pairs))
	streets := make(map[osm.WayID]*street)
	for i, pair := range pairs {
		records[i].Points = []troncon.GeoPoint{pair[0], pair[1]}
		if err := r.resolvePair(ctx, pair, streets, &records[i]); err != nil {
			r.fail(&records[i], err)
		}
	}
	return records
}

func (r *Resolver) resolvePair(ctx context.Context, pair [2]troncon.GeoPoint, streets map[osm.WayID]*street,
	record *Record,
) error {
	s, err := r.resolveStreet(ctx, pair[0], streets)
	if err != nil {
		return err
	}
	var segments [2]troncon.Segment
	for j, point := range pair {
		if segments[j], _, err = troncon.Assign(point, s.table); err != nil {
			return fmt.Errorf("failed to assign %s to a segment of %s: %w", point, s.name, err)
		}
	}
	merged, err := troncon.Merge(segments[0], segments[1], s.table)
	if err != nil {
		return err
	}
	record.Street = StripDiacritics(s.name)
	record.Segment = stripSegment(merged)
	record.Polyline = s.table.Polyline(segments[0], segments[1])

	city, err := r.NearestCity(ctx, pair[0])
	if err != nil {
		return err
	}
	record.City = StripDiacritics(city)
	return nil
}

// resolveStreet finds the street nearest to point and builds its segment table. Streets are
// memoized by way id for the duration of a request.
func (r *Resolver) resolveStreet(ctx context.Context, point troncon.GeoPoint, streets map[osm.WayID]*street,
) (*street, error) {
	way, err := r.NearestStreet(ctx, point)
	if err != nil {
		return nil, err
	}
	if s, ok := streets[way.ID]; ok {
		return s, nil
	}

	name := way.Tags.Find(nameTag)
	r.logger.Info("expanding street nodes", slog.String("street", name), slog.Int("nodes", len(way.Nodes)))
	crossings := r.ExpandNodes(ctx, way.Nodes.NodeIDs())
	var errs []error
	for _, crossing := range crossings {
		if crossing.Err != nil {
			errs = append(errs, crossing.Err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to expand nodes of %s: %w", name, errors.Join(errs...))
	}

	s := &street{name: name, table: troncon.BuildTable(crossings, name)}
	streets[way.ID] = s
	return s, nil
}

func (r *Resolver) fail(record *Record, err error) {
	r.logger.Error("failed to resolve point", slog.Any("points", record.Points), logger.Err(err))
	record.Err = err
}

func stripSegment(segment troncon.Segment) troncon.Segment {
	segment.NameA = StripDiacritics(segment.NameA)
	segment.NameB = StripDiacritics(segment.NameB)
	return segment
}
