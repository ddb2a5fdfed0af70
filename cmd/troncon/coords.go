// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wneessen/troncon/internal/troncon"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// parsePoint parses a "lat,lon" argument.
func parsePoint(arg string) (troncon.GeoPoint, error) {
	latStr, lonStr, ok := strings.Cut(strings.TrimSpace(arg), ",")
	if !ok {
		return troncon.GeoPoint{}, fmt.Errorf("%w: %q is not lat,lon", ErrInvalidCoordinate, arg)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return troncon.GeoPoint{}, fmt.Errorf("%w: latitude of %q: %w", ErrInvalidCoordinate, arg, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return troncon.GeoPoint{}, fmt.Errorf("%w: longitude of %q: %w", ErrInvalidCoordinate, arg, err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return troncon.GeoPoint{}, fmt.Errorf("%w: %q is out of range", ErrInvalidCoordinate, arg)
	}
	return troncon.GeoPoint{Lat: lat, Lon: lon}, nil
}

func parsePoints(args []string) ([]troncon.GeoPoint, error) {
	points := make([]troncon.GeoPoint, 0, len(args))
	for _, arg := range args {
		p, err := parsePoint(arg)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// parsePairs parses "lat1,lon1:lat2,lon2" arguments.
func parsePairs(args []string) ([][2]troncon.GeoPoint, error) {
	pairs := make([][2]troncon.GeoPoint, 0, len(args))
	for _, arg := range args {
		first, second, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not lat1,lon1:lat2,lon2", ErrInvalidCoordinate, arg)
		}
		a, err := parsePoint(first)
		if err != nil {
			return nil, err
		}
		b, err := parsePoint(second)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]troncon.GeoPoint{a, b})
	}
	return pairs, nil
}
