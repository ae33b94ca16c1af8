// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

// Package auth implements the Strava OAuth login flow and cookie sessions.
//
// Sessions are stateless HS256 JWTs carried in an HTTP-only cookie. The JWT
// subject is the Strava athlete ID; there is no separate user table, an
// athlete is whoever Strava says completed the OAuth exchange. Login redirects
// to Strava's authorize endpoint with a single-use state nonce, the callback
// exchanges the code for tokens, persists the credential and issues the
// session cookie.
package auth
