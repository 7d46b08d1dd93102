package kakao

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "kakao-local-api"

// BreakerSettings returns the circuit breaker configuration used by
// NewCircuitBreakerClient: open after 5 consecutive upstream failures, probe
// again after 30 seconds with a single request.
func BreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state transition", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
}

type breakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[any]
}

var _ Client = (*breakerClient)(nil)

// NewCircuitBreakerClient wraps c so that calls fail fast with
// gobreaker.ErrOpenState while the upstream is unhealthy.
func NewCircuitBreakerClient(c Client) Client {
	return NewCircuitBreakerClientWithSettings(c, BreakerSettings())
}

func NewCircuitBreakerClientWithSettings(c Client, st gobreaker.Settings) Client {
	return &breakerClient{client: c, cb: gobreaker.NewCircuitBreaker[any](st)}
}

func (b *breakerClient) SearchByKeyword(ctx context.Context, req KeywordRequest) (*KeywordResult, error) {
	return execute(b.cb, func() (*KeywordResult, error) {
		return b.client.SearchByKeyword(ctx, req)
	})
}

func (b *breakerClient) SearchByAddress(ctx context.Context, req AddressRequest) (*AddressResult, error) {
	return execute(b.cb, func() (*AddressResult, error) {
		return b.client.SearchByAddress(ctx, req)
	})
}

func (b *breakerClient) SearchByCategory(ctx context.Context, req CategoryRequest) (*KeywordResult, error) {
	return execute(b.cb, func() (*KeywordResult, error) {
		return b.client.SearchByCategory(ctx, req)
	})
}

func (b *breakerClient) CoordToAddress(ctx context.Context, lat, lng float64) (*CoordToAddressResult, error) {
	return execute(b.cb, func() (*CoordToAddressResult, error) {
		return b.client.CoordToAddress(ctx, lat, lng)
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (*T, error)) (*T, error) {
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}

	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}

	return typed, nil
}
