package main

import "time"

// Route constants
const (
	RouteLeaderboard = "/api/leaderboard"
	RouteScores      = "/api/scores"
	RouteDailySeed   = "/api/daily-seed"
	RouteRebuild     = "/api/admin/rebuild"
	RoutePurgeDev    = "/api/admin/purge-dev"
	RouteHealthz     = "/healthz"
)

// Error message constants. Authorization and internal failures stay
// generic so no detail leaks to the caller.
const (
	ErrorInvalidType  = "Invalid leaderboard type."
	ErrorInvalidScore = "Invalid score submission."
	ErrorForbidden    = "Forbidden."
	ErrorInternal     = "Something went wrong."
	ErrorRateLimited  = "Too many requests. Please slow down."
)

// AdminKeyHeader carries the shared secret for the rebuild operation.
const AdminKeyHeader = "X-Admin-Key"

// AllTimeCacheAge is how long intermediaries may cache the all-time
// leaderboard. The daily leaderboard and seed responses are never cached.
const AllTimeCacheAge = 30 * time.Second

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)

type contextKey string
