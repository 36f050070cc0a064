package flow

import (
	"time"

	log "github.com/sirupsen/logrus"

	"codemash/internal/types"
)

const banReasonRateExceeded = "submission rate limit exceeded"

// clientRecord tracks one client IP: attempt counts in one-second buckets
// plus the active ban, if any.
type clientRecord struct {
	buckets map[int64]int // unix second -> attempts recorded in it
	ban     *types.BanInfo
}

// Watchman is a sliding-window abuse detector over submission attempts.
//
// Every operation takes the current time explicitly, so tests never need to
// freeze a clock. State is process-local and unsynchronized: the consumer
// loop is single-goroutine, and with several worker processes the limit
// applies per process rather than globally (an accepted approximation,
// unresolved upstream).
type Watchman struct {
	cfg     types.WatchmanConfig
	clients map[string]*clientRecord
	sinceGC int
}

func NewWatchman(cfg types.WatchmanConfig) *Watchman {
	return &Watchman{cfg: cfg, clients: make(map[string]*clientRecord)}
}

// Add records an attempt in the bucket of its one-second timestamp and bans
// the client if any window ending at or after the attempt now exceeds the
// rate limit. A fresh violation always restarts the ban clock at
// now + BanDuration, even when a (possibly shorter) ban is already active.
// Once the attempts recorded since the last garbage collection reach
// GCThreshold, unbanned records are dropped inline.
func (w *Watchman) Add(now time.Time, attempt types.Attempt) {
	rec := w.clients[attempt.IP]
	if rec == nil {
		rec = &clientRecord{buckets: make(map[int64]int)}
		w.clients[attempt.IP] = rec
	}
	at := attempt.At.Unix()
	rec.buckets[at]++

	windowSecs := int64(w.cfg.Window / time.Second)
	// Slide over every window start in [at-window+1s, at], keeping a running
	// count: O(window seconds) per attempt instead of O(history).
	start := at - windowSecs + 1
	count := 0
	for s := start; s < start+windowSecs; s++ {
		count += rec.buckets[s]
	}
	for {
		if float64(count)/float64(windowSecs) > w.cfg.RateLimit {
			rec.ban = &types.BanInfo{
				Until:  now.Add(w.cfg.BanDuration),
				Reason: banReasonRateExceeded,
			}
			log.WithFields(log.Fields{
				"ip":    attempt.IP,
				"until": rec.ban.Until,
			}).Warn("client banned")
			break
		}
		if start == at {
			break
		}
		count -= rec.buckets[start]
		start++
		count += rec.buckets[start+windowSecs-1]
	}

	w.sinceGC++
	if w.sinceGC >= w.cfg.GCThreshold {
		w.gc(now)
	}
}

// IsBannedAt reports whether ip is banned at time t. A ban covers
// [set, until): strictly before until means banned, at until it has lapsed.
// Bans are never actively expired; this comparison is the whole mechanism.
func (w *Watchman) IsBannedAt(ip string, t time.Time) bool {
	rec := w.clients[ip]
	return rec != nil && rec.ban != nil && t.Before(rec.ban.Until)
}

// TrackedClients returns the number of client records currently held.
func (w *Watchman) TrackedClients() int {
	return len(w.clients)
}

// gc drops every client that is not banned at now and resets the attempt
// counter. An unbanned client loses its attempt history, which only means a
// quiet IP restarts its window; in exchange memory stays bounded against
// unbounded distinct IPs without a background sweeper.
func (w *Watchman) gc(now time.Time) {
	before := len(w.clients)
	for ip, rec := range w.clients {
		if rec.ban == nil || !now.Before(rec.ban.Until) {
			delete(w.clients, ip)
		}
	}
	w.sinceGC = 0
	log.WithFields(log.Fields{
		"dropped": before - len(w.clients),
		"kept":    len(w.clients),
	}).Debug("watchman gc")
}
