// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package troncon builds the road segments of a street and places points on them. A segment
// (tronçon) is the part of a street between two consecutive named crossings.
package troncon

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

var (
	// ErrEmptyTable is returned when a point is assigned against a table without segments.
	ErrEmptyTable = errors.New("segment table is empty")

	// ErrMergeImpossible is returned when one of the segments to merge is not part of the table.
	ErrMergeImpossible = errors.New("segments cannot be merged")
)

// GeoPoint is a geographic coordinate in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the point as orb.Point (X is the longitude).
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func (p GeoPoint) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

// Crossing is a node of a street together with the names of all ways passing through it.
type Crossing struct {
	NodeID osm.NodeID
	Coord  GeoPoint
	Names  []string
	Err    error
}

// Segment is the part of a street between the crossings NameA and NameB.
type Segment struct {
	NameA  string   `json:"begin"`
	NameB  string   `json:"end"`
	CoordA GeoPoint `json:"begin_coord"`
	CoordB GeoPoint `json:"end_coord"`
}

func (s Segment) String() string {
	return fmt.Sprintf("%s -> %s", s.NameA, s.NameB)
}
