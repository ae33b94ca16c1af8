// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package strava

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/fitnessoverlays/fitnessoverlays/internal/logging"
	"github.com/fitnessoverlays/fitnessoverlays/internal/metrics"
)

// BreakerClient wraps Client with a circuit breaker so a failing Strava API
// cannot tie up request handlers. Auth and not-found responses count as
// successes for breaker purposes: they are valid upstream answers, not signs
// of an unhealthy upstream.
//
// The breaker uses real time for its interval and timeout calculations; unit
// tests exercise the wrapped client directly.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[json.RawMessage]
}

const breakerName = "strava-api"

// NewBreakerClient wraps the given client with a circuit breaker.
// Opens after a 60% failure rate with at least 10 requests in a one-minute
// window; attempts recovery after two minutes.
func NewBreakerClient(client *Client) *BreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// 401/404 are answers about the request, not upstream health.
			return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})

	return &BreakerClient{client: client, cb: cb}
}

// Athlete fetches the profile through the circuit breaker.
func (b *BreakerClient) Athlete(ctx context.Context, token string) (json.RawMessage, error) {
	return b.cb.Execute(func() (json.RawMessage, error) {
		return b.client.Athlete(ctx, token)
	})
}

// Activities fetches one list page through the circuit breaker.
func (b *BreakerClient) Activities(ctx context.Context, token string, page, perPage int, before, after int64) (json.RawMessage, error) {
	return b.cb.Execute(func() (json.RawMessage, error) {
		return b.client.Activities(ctx, token, page, perPage, before, after)
	})
}

// Activity fetches one activity detail through the circuit breaker.
func (b *BreakerClient) Activity(ctx context.Context, token string, activityID int64) (json.RawMessage, error) {
	return b.cb.Execute(func() (json.RawMessage, error) {
		return b.client.Activity(ctx, token, activityID)
	})
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return -1
	}
}
