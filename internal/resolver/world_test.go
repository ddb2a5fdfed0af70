// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"

	"github.com/wneessen/troncon/internal/overpass"
	"github.com/wneessen/troncon/internal/troncon"
)

// Local equirectangular scale around latitude 48.9.
const (
	metersPerDegreeLat = 111320.0
	metersPerDegreeLon = 73210.0
)

var (
	aroundPattern = regexp.MustCompile(`around:([0-9.-]+),([0-9.-]+),([0-9.-]+)\)`)
	nodePattern   = regexp.MustCompile(`node\((\d+)\);out;$`)
)

type testWay struct {
	id    osm.WayID
	name  string
	nodes []osm.NodeID
}

type testPlace struct {
	id    osm.NodeID
	name  string
	coord troncon.GeoPoint
}

// world is an in-memory geodata source answering the queries of overpass.QueryBuilder.
type world struct {
	queries overpass.QueryBuilder
	nodes   map[osm.NodeID]troncon.GeoPoint
	ways    []testWay
	places  []testPlace
	missing map[osm.NodeID]bool
	latency func(query string) time.Duration

	mu          sync.Mutex
	calls       map[string]int
	cached      map[string]bool
	nodeFetched map[osm.NodeID]time.Time
	inflight    int
	maxInflight int
}

// newWorld returns a street "Rue de l'Égalité" crossed by four streets, and two places nearby.
func newWorld() *world {
	return &world{
		queries: overpass.QueryBuilder{Timeout: time.Second * 800},
		nodes: map[osm.NodeID]troncon.GeoPoint{
			101: {Lat: 48.8960, Lon: 2.2462},
			102: {Lat: 48.8955, Lon: 2.2468},
			103: {Lat: 48.8950, Lon: 2.2474},
			104: {Lat: 48.8944, Lon: 2.24775},
			105: {Lat: 48.8938, Lon: 2.2481},
			106: {Lat: 48.8930, Lon: 2.2486},
			201: {Lat: 48.896835, Lon: 2.24782},
			202: {Lat: 48.895165, Lon: 2.24458},
			203: {Lat: 48.895835, Lon: 2.24902},
			204: {Lat: 48.894165, Lon: 2.24578},
			205: {Lat: 48.894635, Lon: 2.24972},
			206: {Lat: 48.892965, Lon: 2.24648},
			207: {Lat: 48.893835, Lon: 2.25022},
			208: {Lat: 48.892165, Lon: 2.24698},
		},
		ways: []testWay{
			{id: 1000, name: "Rue de l'Égalité", nodes: []osm.NodeID{101, 102, 103, 104, 105, 106}},
			{id: 2001, name: "Rue Arago", nodes: []osm.NodeID{201, 101, 202}},
			{id: 2002, name: "Boulevard Saint-Denis", nodes: []osm.NodeID{203, 103, 204}},
			{id: 2003, name: "Rue Voltaire", nodes: []osm.NodeID{105, 205}},
			{id: 2004, name: "Rue Émile Zola", nodes: []osm.NodeID{105, 206}},
			{id: 2005, name: "Rue de Bezons", nodes: []osm.NodeID{207, 106, 208}},
		},
		places: []testPlace{
			{id: 301, name: "Bécon-les-Bruyères", coord: troncon.GeoPoint{Lat: 48.8973, Lon: 2.2567}},
			{id: 302, name: "La Garenne-Colombes", coord: troncon.GeoPoint{Lat: 48.9069, Lon: 2.2447}},
		},
		missing:     make(map[osm.NodeID]bool),
		calls:       make(map[string]int),
		cached:      make(map[string]bool),
		nodeFetched: make(map[osm.NodeID]time.Time),
	}
}

func (w *world) Queries() overpass.QueryBuilder {
	return w.queries
}

func (w *world) Cached(query string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cached[query]
}

func (w *world) Fetch(ctx context.Context, query string) (*overpass.Response, error) {
	w.mu.Lock()
	w.calls[query]++
	w.cached[query] = true
	w.inflight++
	w.maxInflight = max(w.maxInflight, w.inflight)
	if match := nodePattern.FindStringSubmatch(query); match != nil {
		id, _ := strconv.ParseInt(match[1], 10, 64)
		if _, ok := w.nodeFetched[osm.NodeID(id)]; !ok {
			w.nodeFetched[osm.NodeID(id)] = time.Now()
		}
	}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.inflight--
		w.mu.Unlock()
	}()
	if w.latency != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.latency(query)):
		}
	}
	return w.answer(query)
}

func (w *world) answer(query string) (*overpass.Response, error) {
	response := &overpass.Response{Version: 0.6, Generator: "test world"}
	if match := nodePattern.FindStringSubmatch(query); match != nil {
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return nil, err
		}
		coord, ok := w.nodes[osm.NodeID(id)]
		if ok && !w.missing[osm.NodeID(id)] {
			response.Elements = append(response.Elements, w.nodeElement(osm.NodeID(id), coord))
		}
		return response, nil
	}

	match := aroundPattern.FindStringSubmatch(query)
	if match == nil {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	var values [3]float64
	for i := range values {
		v, err := strconv.ParseFloat(match[i+1], 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	radius, point := values[0], toMeters(troncon.GeoPoint{Lat: values[1], Lon: values[2]})

	if strings.Contains(query, `"place"`) {
		for _, place := range w.places {
			if planar.Distance(point, toMeters(place.coord)) <= radius {
				element := w.nodeElement(place.id, place.coord)
				element.Tags = map[string]string{"name": place.name, "place": "village"}
				response.Elements = append(response.Elements, element)
			}
		}
		return response, nil
	}

	for _, way := range w.ways {
		if w.distanceToWay(way, point) > radius {
			continue
		}
		for _, id := range way.nodes {
			response.Elements = append(response.Elements, w.nodeElement(id, w.nodes[id]))
		}
		response.Elements = append(response.Elements, overpass.Element{
			Type:  overpass.TypeWay,
			ID:    int64(way.id),
			Nodes: way.nodes,
			Tags:  map[string]string{"highway": "residential", "name": way.name},
		})
	}
	return response, nil
}

func (w *world) nodeElement(id osm.NodeID, coord troncon.GeoPoint) overpass.Element {
	return overpass.Element{Type: overpass.TypeNode, ID: int64(id), Lat: coord.Lat, Lon: coord.Lon}
}

func (w *world) distanceToWay(way testWay, point orb.Point) float64 {
	line := make(orb.LineString, len(way.nodes))
	for i, id := range way.nodes {
		line[i] = toMeters(w.nodes[id])
	}
	return planar.DistanceFrom(line, point)
}

func (w *world) callCount(query string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[query]
}

func (w *world) totalCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := 0
	for _, n := range w.calls {
		total += n
	}
	return total
}

func toMeters(p troncon.GeoPoint) orb.Point {
	return orb.Point{p.Lon * metersPerDegreeLon, p.Lat * metersPerDegreeLat}
}

// failingGeodata fails every fetch.
type failingGeodata struct {
	err error
}

func (f failingGeodata) Fetch(context.Context, string) (*overpass.Response, error) {
	return nil, f.err
}

func (f failingGeodata) Cached(string) bool {
	return false
}

func (f failingGeodata) Queries() overpass.QueryBuilder {
	return overpass.QueryBuilder{Timeout: time.Second}
}

var errUpstream = errors.New("upstream unavailable")
