// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package search implements the adaptive radius search used to find the single nearest feature
// around a point. The search radius is bracketed between a lower and an upper bound and bisected
// until a probe returns exactly one candidate.
package search

import (
	"context"
	"errors"
	"fmt"
)

// DefaultExpandStep is the amount the upper bound grows by after a run of empty probes.
const DefaultExpandStep = 1000

var (
	// ErrNoMatchFound is returned when the iteration cap is reached and the last probe was empty.
	ErrNoMatchFound = errors.New("no feature found within the search radius")

	// ErrAmbiguousBracket is returned when the iteration cap is reached and the last probe still
	// returned more than one candidate.
	ErrAmbiguousBracket = errors.New("search radius did not isolate a single feature")
)

// Params bounds a search.
type Params struct {
	Lower                  float64
	Upper                  float64
	StagnationBeforeExpand uint
	ExpandStep             float64
	MaxIterations          uint
}

// ProbeFunc returns the candidates found within radius.
type ProbeFunc[T any] func(ctx context.Context, radius float64) ([]T, error)

// Run bisects the radius until probe returns exactly one candidate and returns it. Errors
// returned by probe abort the search.
func Run[T any](ctx context.Context, params Params, probe ProbeFunc[T]) (T, error) {
	var zero T
	b := newBracket(params)
	last := 0
	for i := uint(0); i < params.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		radius := b.radius()
		candidates, err := probe(ctx, radius)
		if err != nil {
			return zero, err
		}
		if len(candidates) == 1 {
			return candidates[0], nil
		}
		last = len(candidates)
		b.update(last)
	}

	if last == 0 {
		return zero, fmt.Errorf("%w: %d iterations, bracket [%g, %g]", ErrNoMatchFound,
			params.MaxIterations, b.lower, b.upper)
	}
	return zero, fmt.Errorf("%w: %d candidates after %d iterations, bracket [%g, %g]", ErrAmbiguousBracket,
		last, params.MaxIterations, b.lower, b.upper)
}

type bracket struct {
	lower      float64
	upper      float64
	stagnation uint
	threshold  uint
	step       float64
}

func newBracket(params Params) *bracket {
	step := params.ExpandStep
	if step <= 0 {
		step = DefaultExpandStep
	}
	return &bracket{
		lower:     params.Lower,
		upper:     params.Upper,
		threshold: params.StagnationBeforeExpand,
		step:      step,
	}
}

func (b *bracket) radius() float64 {
	return (b.upper + b.lower) / 2
}

// update narrows the bracket after a probe at the current radius that found count candidates.
// A run of empty probes as long as the threshold widens the upper bound.
func (b *bracket) update(count int) {
	radius := b.radius()
	switch {
	case count == 0:
		b.lower = radius
		b.stagnation++
		if b.threshold > 0 && b.stagnation >= b.threshold {
			b.stagnation = 0
			b.upper += b.step
		}
	case count > 1:
		b.upper = radius
		b.stagnation = 0
	}
}
