// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// requestIDKey is the context key for HTTP request IDs.
	requestIDKey contextKey = "request_id"

	// athleteIDKey is the context key for the authenticated athlete.
	athleteIDKey contextKey = "athlete_id"
)

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithAthleteID returns a new context carrying the athlete ID so it
// appears in every log line emitted while handling the request.
func ContextWithAthleteID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, athleteIDKey, id)
}

// AthleteIDFromContext retrieves the athlete ID from context.
// Returns 0 if not present.
func AthleteIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(athleteIDKey).(int64); ok {
		return id
	}
	return 0
}

// Ctx returns a logger with request_id and athlete_id automatically added
// when present. This is the recommended way to log inside handlers and
// services.
//
//	logging.Ctx(ctx).Info().Msg("Serving cached activity")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := Logger()

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}
	if athleteID := AthleteIDFromContext(ctx); athleteID != 0 {
		logger = logger.With().Int64("athlete_id", athleteID).Logger()
	}

	return &logger
}
