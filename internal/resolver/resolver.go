// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package resolver resolves points to the nearest street, city and road segment using a geodata
// source.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/osm"

	"github.com/wneessen/troncon/internal/config"
	"github.com/wneessen/troncon/internal/logger"
	"github.com/wneessen/troncon/internal/metrics"
	"github.com/wneessen/troncon/internal/overpass"
	"github.com/wneessen/troncon/internal/search"
	"github.com/wneessen/troncon/internal/troncon"
)

const (
	kindCity   = "city"
	kindStreet = "street"
	nameTag    = "name"
	placeTag   = "place"
)

// Geodata is the source of geodata responses.
type Geodata interface {
	Fetch(ctx context.Context, query string) (*overpass.Response, error)
	Cached(query string) bool
	Queries() overpass.QueryBuilder
}

// Resolver resolves points against a Geodata source. It is safe for concurrent use.
type Resolver struct {
	geodata     Geodata
	logger      *logger.Logger
	metrics     *metrics.Metrics
	city        search.Params
	street      search.Params
	concurrency int
	delay       time.Duration
}

func New(geodata Geodata, conf *config.Config, log *logger.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		geodata:     geodata,
		logger:      log,
		metrics:     m,
		city:        searchParams(conf.NearestCity),
		street:      searchParams(conf.NearestStreet),
		concurrency: int(conf.Expansion.Concurrency),
		delay:       conf.Expansion.Delay,
	}
}

func searchParams(b config.Bracket) search.Params {
	return search.Params{
		Lower:                  b.LowerBound,
		Upper:                  b.InitialUpperBound,
		StagnationBeforeExpand: b.StagnationBeforeExpand,
		ExpandStep:             search.DefaultExpandStep,
		MaxIterations:          b.MaxIterations,
	}
}

// NearestCity returns the name of the single town, city or village closest to p.
func (r *Resolver) NearestCity(ctx context.Context, p troncon.GeoPoint) (string, error) {
	queries := r.geodata.Queries()
	probe := func(ctx context.Context, radius float64) ([]*osm.Node, error) {
		r.metrics.SearchIteration(kindCity)
		response, err := r.geodata.Fetch(ctx, queries.City(radius, p.Lat, p.Lon))
		if err != nil {
			return nil, err
		}
		var places []*osm.Node
		for _, node := range response.Nodes() {
			if node.Tags.Find(placeTag) != "" {
				places = append(places, node)
			}
		}
		return places, nil
	}

	r.logger.Debug("searching nearest city", slog.String("point", p.String()))
	node, err := search.Run(ctx, r.city, probe)
	if err != nil {
		return "", fmt.Errorf("failed to find nearest city of %s: %w", p, err)
	}
	return node.Tags.Find(nameTag), nil
}

// NearestStreet returns the single named way closest to p.
func (r *Resolver) NearestStreet(ctx context.Context, p troncon.GeoPoint) (*osm.Way, error) {
	queries := r.geodata.Queries()
	probe := func(ctx context.Context, radius float64) ([]*osm.Way, error) {
		r.metrics.SearchIteration(kindStreet)
		response, err := r.geodata.Fetch(ctx, queries.Street(radius, p.Lat, p.Lon))
		if err != nil {
			return nil, err
		}
		return response.Ways(), nil
	}

	r.logger.Debug("searching nearest street", slog.String("point", p.String()))
	way, err := search.Run(ctx, r.street, probe)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearest street of %s: %w", p, err)
	}
	return way, nil
}
