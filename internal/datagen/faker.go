//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package datagen provides the seeded random source behind all generators.
// Every generation function takes a *Faker explicitly; there is no global
// random state, so runs with the same seed reproduce byte-identical data
// regardless of call order elsewhere in the program.
package datagen

import (
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Faker provides seeded fake data generation using gofakeit.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker creates a new Faker with a time-derived seed.
func NewFaker() *Faker {
	return &Faker{
		faker: gofakeit.New(uint64(time.Now().UnixNano())),
	}
}

// NewFakerWithSeed creates a new Faker with a specific seed for
// reproducibility.
func NewFakerWithSeed(seed uint64) *Faker {
	return &Faker{
		faker: gofakeit.New(seed),
	}
}

// City generates a random city name.
func (f *Faker) City() string {
	return f.faker.City()
}

// LettersUpper generates n random uppercase letters.
func (f *Faker) LettersUpper(n int) string {
	return strings.ToUpper(f.faker.LetterN(uint(n)))
}

// Int generates a random integer between min and max (inclusive).
func (f *Faker) Int(min, max int) int {
	return f.faker.IntRange(min, max)
}

// Int64 generates a random int64 between min and max (inclusive).
func (f *Faker) Int64(min, max int64) int64 {
	return int64(f.faker.IntRange(int(min), int(max)))
}

// Float64 generates a random float64 between min and max.
func (f *Faker) Float64(min, max float64) float64 {
	return f.faker.Float64Range(min, max)
}

// Bool generates a random boolean.
func (f *Faker) Bool() bool {
	return f.faker.Bool()
}

// Chance returns true with probability p (0..1).
func (f *Faker) Chance(p float64) bool {
	return f.Float64(0, 1) < p
}

// Duration generates a random duration between min and max.
func (f *Faker) Duration(min, max time.Duration) time.Duration {
	return time.Duration(f.Int64(int64(min), int64(max)))
}

// TimeIn generates a random timestamp in [start, end), truncated to
// whole seconds.
func (f *Faker) TimeIn(start, end time.Time) time.Time {
	span := end.Unix() - start.Unix()
	if span < 1 {
		span = 1
	}
	return time.Unix(start.Unix()+f.Int64(0, span-1), 0).UTC()
}

// Normal draws from a normal distribution with the given mean and
// standard deviation using the seeded uniform source (Box-Muller).
func (f *Faker) Normal(mean, stddev float64) float64 {
	u1 := f.Float64(math.SmallestNonzeroFloat64, 1)
	u2 := f.Float64(0, 1)
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + stddev*z
}

// LogNormal draws from a log-normal distribution parameterized by the
// mean and standard deviation of the underlying normal.
func (f *Faker) LogNormal(mu, sigma float64) float64 {
	return math.Exp(f.Normal(mu, sigma))
}

// Choose returns a random element from the given slice.
func Choose[T any](f *Faker, items []T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return items[f.Int(0, len(items)-1)]
}

// ChooseWeighted returns a random element based on weights.
func ChooseWeighted[T any](f *Faker, items []T, weights []int) T {
	if len(items) == 0 || len(weights) == 0 {
		var zero T
		return zero
	}

	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}

	r := f.Int(1, totalWeight)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return items[i]
		}
	}

	return items[len(items)-1]
}

// Sample returns n distinct random elements from items. When n exceeds
// len(items) the whole slice is returned in shuffled order.
func Sample[T any](f *Faker, items []T, n int) []T {
	if n >= len(items) {
		n = len(items)
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates: only the first n positions are needed.
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		j := f.Int(i, len(idx)-1)
		idx[i], idx[j] = idx[j], idx[i]
		out = append(out, items[idx[i]])
	}
	return out
}

// Round2 rounds a currency amount to two decimal places. All monetary
// rounding happens at the line level before aggregation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
