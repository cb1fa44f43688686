package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vortturo/internal/dailyseed"
	"vortturo/internal/leaderboard"
	"vortturo/internal/types"
)

// requestID pulls the request ID injected by requestIDMiddleware.
func requestID(c *gin.Context) string {
	reqID, _ := c.Request.Context().Value(requestIDKey).(string)
	return reqID
}

// isDevRequest decides which environment partition a request touches. A
// local process always works against dev-marked keys; hosted deployments
// route synthetic test traffic there via env=dev.
func (app *App) isDevRequest(c *gin.Context) bool {
	return !app.Hosted || c.Query("env") == "dev"
}

// leaderboardHandler serves a ranked, capped slice of the requested
// leaderboard partition.
func (app *App) leaderboardHandler(c *gin.Context) {
	kind := c.Query("type")
	if kind != leaderboard.KindDaily && kind != leaderboard.KindAllTime {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrorInvalidType})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			logWarn("[request_id=%v] Ignoring unparsable limit %q: %v", requestID(c), raw, err)
		} else {
			limit = n
		}
	}

	view := app.Reader.Leaderboard(c.Request.Context(), kind, limit, app.isDevRequest(c))

	applyCacheHeaders(c, kind == leaderboard.KindAllTime)
	resp := gin.H{
		"success":      true,
		"type":         view.Kind,
		"leaderboard":  view.Entries,
		"totalEntries": view.TotalEntries,
	}
	if view.Date != "" {
		resp["date"] = view.Date
	}
	c.JSON(http.StatusOK, resp)
}

// submitScoreHandler appends an already-computed score submission to the
// raw score store. No gameplay validation happens here.
func (app *App) submitScoreHandler(c *gin.Context) {
	var rec types.ScoreRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		logWarn("[request_id=%v] Rejected malformed score submission: %v", requestID(c), err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ErrorInvalidScore})
		return
	}

	err := app.Recorder.Append(c.Request.Context(), rec, app.isDevRequest(c))
	if err != nil {
		if errors.Is(err, leaderboard.ErrInvalidScore) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		logWarn("[request_id=%v] Failed to record score: %v", requestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrorInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// dailySeedHandler returns the deterministic seed record for today's UTC
// date, creating and persisting it on first request.
func (app *App) dailySeedHandler(c *gin.Context) {
	date := time.Now().UTC().Format(dailyseed.DateFormat)
	rec, err := app.Seeds.ForDate(c.Request.Context(), date)
	if err != nil {
		logWarn("[request_id=%v] Failed to get daily seed for %s: %v", requestID(c), date, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrorInternal})
		return
	}

	applyCacheHeaders(c, false)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

// rebuildHandler runs the administrative full re-aggregation. On hosted
// deployments it is gated by a shared secret; the failure response never
// says which check failed.
func (app *App) rebuildHandler(c *gin.Context) {
	if app.Hosted {
		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			key = c.Query("key")
		}
		if app.AdminKey == "" || key != app.AdminKey {
			logWarn("[request_id=%v] Rejected rebuild with bad admin key", requestID(c))
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": ErrorForbidden})
			return
		}
	}

	result, err := app.Rebuilder.Run(c.Request.Context())
	if err != nil {
		logWarn("[request_id=%v] Rebuild failed: %v", requestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrorInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "imported": result})
}

// purgeDevHandler deletes synthetic dev-marked raw records. Only available
// in local deployments.
func (app *App) purgeDevHandler(c *gin.Context) {
	count, err := app.Purger.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, leaderboard.ErrHostedPurge) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": ErrorForbidden})
			return
		}
		logWarn("[request_id=%v] Dev data purge failed: %v", requestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": ErrorInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("Deleted %d dev record%s", count, plural(count)),
		"deletedCount": count,
	})
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	uptime := time.Since(app.StartTime)
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"env":       map[bool]string{true: "hosted", false: "local"}[app.Hosted],
		"uptime":    formatUptime(uptime),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
