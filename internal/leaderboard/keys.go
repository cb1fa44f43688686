// Package leaderboard implements the server-side leaderboard
// materialization pipeline: appending raw score submissions, folding them
// into sorted best-per-player index documents, and serving ranked slices of
// those documents.
package leaderboard

import "strings"

// Leaderboard kinds accepted on the read path.
const (
	KindDaily   = "daily"
	KindAllTime = "alltime"
)

// DevMarker prefixes keys written by synthetic/dev traffic. Dev entries
// share physical partitions with production entries and are told apart by
// this marker alone.
const DevMarker = "dev_"

const (
	rawPrefix        = "scores/"
	rawDailyRoot     = rawPrefix + KindDaily + "/"
	rawAllTimeRoot   = rawPrefix + KindAllTime + "/"
	indexDailyRoot   = "index/" + KindDaily + "/"
	indexAllTimeRoot = "index/" + KindAllTime + "/"
	allTimeSegment   = "all"
	dateLayout       = "2006-01-02"
)

func marker(dev bool) string {
	if dev {
		return DevMarker
	}
	return ""
}

// rawDailyKey is scores/daily/<date>/<dev_?><id>.
func rawDailyKey(date, id string, dev bool) string {
	return rawDailyRoot + date + "/" + marker(dev) + id
}

// rawAllTimeKey is scores/alltime/<dev_?><id>.
func rawAllTimeKey(id string, dev bool) string {
	return rawAllTimeRoot + marker(dev) + id
}

func rawDailyPrefix(date string) string {
	return rawDailyRoot + date + "/"
}

// indexDailyKey is index/daily/<dev_?><date>.
func indexDailyKey(date string, dev bool) string {
	return indexDailyRoot + marker(dev) + date
}

// indexAllTimeKey is index/alltime/<dev_?>all.
func indexAllTimeKey(dev bool) string {
	return indexAllTimeRoot + marker(dev) + allTimeSegment
}

// isDevKey reports whether a raw key's final segment carries the dev
// marker.
func isDevKey(key string) bool {
	seg := key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		seg = key[i+1:]
	}
	return strings.HasPrefix(seg, DevMarker)
}
