// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package overpass

import (
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/osm"
)

// WaysAroundRadius is the buffer in meters used to find the ways crossing at a node.
const WaysAroundRadius = 2

// QueryBuilder renders Overpass QL queries. Identical inputs always produce byte-identical
// queries, which the response cache relies on.
type QueryBuilder struct {
	Timeout time.Duration
}

// City matches town, city and village nodes within radius meters of lat/lon.
func (b QueryBuilder) City(radius, lat, lon float64) string {
	around := "(around:" + num(radius) + "," + num(lat) + "," + num(lon) + ");"
	var sb strings.Builder
	sb.WriteString(b.header())
	sb.WriteString("(")
	for _, place := range []string{"town", "city", "village"} {
		sb.WriteString(`node["place"="` + place + `"]` + around)
	}
	sb.WriteString(");out body;>;out skel qt;")
	return sb.String()
}

// Street matches any named way within radius meters of lat/lon, including its nodes.
func (b QueryBuilder) Street(radius, lat, lon float64) string {
	return b.header() + "way(around:" + num(radius) + "," + num(lat) + "," + num(lon) + ")[name];(._;>;);out;"
}

// WaysAround matches the named ways passing within WaysAroundRadius meters of lat/lon.
func (b QueryBuilder) WaysAround(lat, lon float64) string {
	return b.Street(WaysAroundRadius, lat, lon)
}

// Node looks up a single node by its id.
func (b QueryBuilder) Node(id osm.NodeID) string {
	return b.header() + "node(" + strconv.FormatInt(int64(id), 10) + ");out;"
}

func (b QueryBuilder) header() string {
	return "[out:json][timeout:" + strconv.FormatInt(int64(b.Timeout/time.Second), 10) + "];"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
