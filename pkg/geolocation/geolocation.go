// Package geolocation answers "where is the user right now" with a one-shot
// position request.
package geolocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/manzanit0/studymap/pkg/geocode"
)

// ErrUnavailable is returned when no location service can be reached or the
// user denied access to it.
var ErrUnavailable = errors.New("location unavailable")

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Accuracy is the radius of uncertainty in metres; zero when unknown.
	Accuracy float64 `json:"accuracy,omitempty"`
}

// Locator performs a single position request. It blocks until a position is
// known, the service fails, or ctx is done.
type Locator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

type Func func(ctx context.Context) (Position, error)

func (f Func) CurrentPosition(ctx context.Context) (Position, error) {
	return f(ctx)
}

func Static(p Position) Locator {
	return Func(func(ctx context.Context) (Position, error) {
		if err := ctx.Err(); err != nil {
			return Position{}, err
		}
		return p, nil
	})
}

func Unavailable() Locator {
	return Func(func(context.Context) (Position, error) {
		return Position{}, ErrUnavailable
	})
}

type ctxKey struct{}

// WithPosition attaches a position reported by the caller (e.g. a browser
// sending navigator.geolocation results) to ctx.
func WithPosition(ctx context.Context, p Position) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns a Locator reading the position attached with
// WithPosition.
func FromContext() Locator {
	return Func(func(ctx context.Context) (Position, error) {
		p, ok := ctx.Value(ctxKey{}).(Position)
		if !ok {
			return Position{}, fmt.Errorf("%w: no position in context", ErrUnavailable)
		}
		return p, nil
	})
}

// Geocoded resolves a fixed address, such as a configured home, every time a
// position is requested.
func Geocoded(c geocode.Client, query string) Locator {
	return Func(func(ctx context.Context) (Position, error) {
		if err := ctx.Err(); err != nil {
			return Position{}, err
		}

		loc, err := c.Geocode(query)
		if err != nil {
			return Position{}, fmt.Errorf("%w: geocode %q: %w", ErrUnavailable, query, err)
		}

		return Position{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
	})
}

// First asks each locator in turn and returns the first position found.
func First(locators ...Locator) Locator {
	return Func(func(ctx context.Context) (Position, error) {
		var errs []error
		for _, l := range locators {
			p, err := l.CurrentPosition(ctx)
			if err == nil {
				return p, nil
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return Position{}, ctxErr
			}

			errs = append(errs, err)
		}

		if len(errs) == 0 {
			return Position{}, ErrUnavailable
		}

		return Position{}, errors.Join(errs...)
	})
}
