package attendance

import (
	"context"
	"errors"
	"time"

	"field-attendance-api-server/internal/models"
)

// Position is a resolved location fix.
type Position struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

func (p Position) Point() models.LatLng {
	return models.LatLng{Lat: p.Lat, Lng: p.Lng}
}

// LocationProvider resolves the caller's current position. It may block;
// CheckIn bounds it with the configured timeout.
type LocationProvider interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

type LocationFunc func(ctx context.Context) (Position, error)

func (f LocationFunc) CurrentPosition(ctx context.Context) (Position, error) {
	return f(ctx)
}

// ReportedPosition is a fix the client acquired itself and sent with the
// request. A zero Timestamp means the fix was taken at request time.
type ReportedPosition Position

func (r ReportedPosition) CurrentPosition(context.Context) (Position, error) {
	return Position(r), nil
}

var errNoProvider = errors.New("no location provider")

// acquire runs the provider under timeout and gives up when ctx ends, even if
// the provider ignores cancellation.
func acquire(ctx context.Context, loc LocationProvider, timeout time.Duration) (Position, error) {
	if loc == nil {
		return Position{}, errNoProvider
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		pos Position
		err error
	}
	ch := make(chan result, 1)
	go func() {
		pos, err := loc.CurrentPosition(ctx)
		ch <- result{pos: pos, err: err}
	}()

	select {
	case r := <-ch:
		return r.pos, r.err
	case <-ctx.Done():
		return Position{}, ctx.Err()
	}
}
