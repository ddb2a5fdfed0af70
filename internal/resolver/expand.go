// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/osm"
	"github.com/sourcegraph/conc/pool"

	"github.com/wneessen/troncon/internal/logger"
	"github.com/wneessen/troncon/internal/troncon"
)

// ErrMissingNodeData is returned when a node lookup yields no elements.
var ErrMissingNodeData = errors.New("node lookup returned no data")

// MissingNodeDataError identifies the node that could not be looked up.
type MissingNodeDataError struct {
	NodeID osm.NodeID
}

func (e *MissingNodeDataError) Error() string {
	return fmt.Sprintf("%s: node %d", ErrMissingNodeData, e.NodeID)
}

func (e *MissingNodeDataError) Unwrap() error {
	return ErrMissingNodeData
}

// ExpandNodes resolves each node into its coordinate and the names of the ways crossing it. At
// most the configured number of nodes is resolved at once, and the n-th node waits n times the
// configured delay before its first uncached request. The result has one crossing per id, in the
// order of ids. Failures are reported per crossing.
func (r *Resolver) ExpandNodes(ctx context.Context, ids []osm.NodeID) []troncon.Crossing {
	crossings := make([]troncon.Crossing, len(ids))
	workers := pool.New().WithMaxGoroutines(max(r.concurrency, 1))
	for i, id := range ids {
		workers.Go(func() {
			crossings[i] = r.expandNode(ctx, i, id)
		})
	}
	workers.Wait()
	return crossings
}

func (r *Resolver) expandNode(ctx context.Context, index int, id osm.NodeID) troncon.Crossing {
	crossing := troncon.Crossing{NodeID: id}
	queries := r.geodata.Queries()

	query := queries.Node(id)
	if !r.geodata.Cached(query) && !sleepOrDone(ctx, time.Duration(index)*r.delay) {
		crossing.Err = ctx.Err()
		return crossing
	}
	response, err := r.geodata.Fetch(ctx, query)
	if err != nil {
		crossing.Err = fmt.Errorf("failed to look up node %d: %w", id, err)
		return crossing
	}
	nodes := response.Nodes()
	if len(nodes) == 0 {
		r.logger.Warn("node lookup returned no data", slog.Int64("node", int64(id)))
		crossing.Err = &MissingNodeDataError{NodeID: id}
		return crossing
	}
	crossing.Coord = troncon.GeoPoint{Lat: nodes[0].Lat, Lon: nodes[0].Lon}

	response, err = r.geodata.Fetch(ctx, queries.WaysAround(crossing.Coord.Lat, crossing.Coord.Lon))
	if err != nil {
		r.logger.Error("failed to look up crossing ways", slog.Int64("node", int64(id)), logger.Err(err))
		crossing.Err = fmt.Errorf("failed to look up ways crossing node %d: %w", id, err)
		return crossing
	}
	crossing.Names = response.WayNames()
	return crossing
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
