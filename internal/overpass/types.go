// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package overpass

import (
	"sort"

	"github.com/paulmach/osm"
)

const (
	TypeNode = "node"
	TypeWay  = "way"

	nameKey = "name"
)

// Response is the JSON document returned by the Overpass API.
type Response struct {
	Version   float64   `json:"version"`
	Generator string    `json:"generator"`
	Remark    string    `json:"remark,omitempty"`
	Elements  []Element `json:"elements"`
}

// Element is a single OSM element of a Response.
type Element struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat,omitempty"`
	Lon   float64           `json:"lon,omitempty"`
	Nodes []osm.NodeID      `json:"nodes,omitempty"`
	Tags  map[string]string `json:"tags,omitempty"`
}

func (e Element) Name() string {
	return e.Tags[nameKey]
}

// Way converts the element into an osm.Way. The node references carry no coordinates.
func (e Element) Way() *osm.Way {
	nodes := make(osm.WayNodes, len(e.Nodes))
	for i, id := range e.Nodes {
		nodes[i] = osm.WayNode{ID: id}
	}
	return &osm.Way{
		ID:    osm.WayID(e.ID),
		Nodes: nodes,
		Tags:  tags(e.Tags),
	}
}

// Node converts the element into an osm.Node.
func (e Element) Node() *osm.Node {
	return &osm.Node{
		ID:   osm.NodeID(e.ID),
		Lat:  e.Lat,
		Lon:  e.Lon,
		Tags: tags(e.Tags),
	}
}

// Ways returns the way elements of the response in document order.
func (r *Response) Ways() []*osm.Way {
	var ways []*osm.Way
	for _, e := range r.Elements {
		if e.Type == TypeWay {
			ways = append(ways, e.Way())
		}
	}
	return ways
}

// Nodes returns the node elements of the response in document order.
func (r *Response) Nodes() []*osm.Node {
	var nodes []*osm.Node
	for _, e := range r.Elements {
		if e.Type == TypeNode {
			nodes = append(nodes, e.Node())
		}
	}
	return nodes
}

// WayNames returns the distinct, sorted names of the way elements of the response.
func (r *Response) WayNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range r.Elements {
		if e.Type != TypeWay || e.Name() == "" {
			continue
		}
		if _, ok := seen[e.Name()]; ok {
			continue
		}
		seen[e.Name()] = struct{}{}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// tags converts a tag map into osm.Tags sorted by key.
func tags(m map[string]string) osm.Tags {
	if len(m) == 0 {
		return nil
	}
	t := make(osm.Tags, 0, len(m))
	for k, v := range m {
		t = append(t, osm.Tag{Key: k, Value: v})
	}
	sort.Slice(t, func(i, j int) bool { return t[i].Key < t[j].Key })
	return t
}
