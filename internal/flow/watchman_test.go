package flow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"codemash/internal/types"
)

type WatchmanTestSuite struct {
	suite.Suite

	base time.Time
}

func TestWatchmanTestSuite(t *testing.T) {
	suite.Run(t, new(WatchmanTestSuite))
}

func (s *WatchmanTestSuite) SetupTest() {
	s.base = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func (s *WatchmanTestSuite) newWatchman(cfg types.WatchmanConfig) *Watchman {
	s.Require().NoError(cfg.Validate())
	return NewWatchman(cfg)
}

func (s *WatchmanTestSuite) addAt(w *Watchman, ip string, offset time.Duration) {
	at := s.base.Add(offset)
	w.Add(at, types.Attempt{IP: ip, At: at})
}

func (s *WatchmanTestSuite) TestWithinLimitStaysUnbanned() {
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   1,
		Window:      3 * time.Second,
		BanDuration: time.Hour,
		GCThreshold: 1000,
	})

	// One attempt per second for three seconds: exactly at the limit, not over.
	s.addAt(w, "203.0.113.7", 0)
	s.addAt(w, "203.0.113.7", 1*time.Second)
	s.addAt(w, "203.0.113.7", 2*time.Second)
	s.False(w.IsBannedAt("203.0.113.7", s.base.Add(2*time.Second)))

	// A fourth attempt in the same window tips the rate over the limit.
	s.addAt(w, "203.0.113.7", 2*time.Second)
	s.True(w.IsBannedAt("203.0.113.7", s.base.Add(2*time.Second)))
}

func (s *WatchmanTestSuite) TestBurstInOneSecondBans() {
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   1,
		Window:      1 * time.Second,
		BanDuration: time.Minute,
		GCThreshold: 1000,
	})

	s.addAt(w, "198.51.100.2", 0)
	s.False(w.IsBannedAt("198.51.100.2", s.base))
	s.addAt(w, "198.51.100.2", 0)
	s.True(w.IsBannedAt("198.51.100.2", s.base))
}

func (s *WatchmanTestSuite) TestClientsAreIndependent() {
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   1,
		Window:      1 * time.Second,
		BanDuration: time.Minute,
		GCThreshold: 1000,
	})

	s.addAt(w, "198.51.100.2", 0)
	s.addAt(w, "198.51.100.2", 0)
	s.addAt(w, "198.51.100.3", 0)
	s.True(w.IsBannedAt("198.51.100.2", s.base))
	s.False(w.IsBannedAt("198.51.100.3", s.base))
}

func (s *WatchmanTestSuite) TestBanBoundaryIsExclusive() {
	banDuration := time.Minute
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   1,
		Window:      1 * time.Second,
		BanDuration: banDuration,
		GCThreshold: 1000,
	})

	s.addAt(w, "198.51.100.2", 0)
	s.addAt(w, "198.51.100.2", 0)

	until := s.base.Add(banDuration)
	s.True(w.IsBannedAt("198.51.100.2", until.Add(-time.Nanosecond)))
	// Banned while t < until; at until the ban has lapsed.
	s.False(w.IsBannedAt("198.51.100.2", until))
	s.False(w.IsBannedAt("198.51.100.2", until.Add(time.Second)))
}

func (s *WatchmanTestSuite) TestRepeatViolationRestartsBanClock() {
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   1,
		Window:      1 * time.Second,
		BanDuration: time.Minute,
		GCThreshold: 1000,
	})

	s.addAt(w, "198.51.100.2", 0)
	s.addAt(w, "198.51.100.2", 0)
	s.True(w.IsBannedAt("198.51.100.2", s.base))

	// A violation 30s later pushes the ban out to T+30s+1m.
	s.addAt(w, "198.51.100.2", 30*time.Second)
	s.addAt(w, "198.51.100.2", 30*time.Second)
	s.True(w.IsBannedAt("198.51.100.2", s.base.Add(89*time.Second)))
	s.False(w.IsBannedAt("198.51.100.2", s.base.Add(90*time.Second)))
}

func (s *WatchmanTestSuite) TestGCDropsUnbannedKeepsBanned() {
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   1,
		Window:      1 * time.Second,
		BanDuration: time.Hour,
		GCThreshold: 5,
	})

	// Two attempts in one second: banned.
	s.addAt(w, "198.51.100.2", 0)
	s.addAt(w, "198.51.100.2", 0)
	s.True(w.IsBannedAt("198.51.100.2", s.base))

	// Spread the remaining attempts over distinct quiet IPs until GC fires.
	s.addAt(w, "203.0.113.10", time.Second)
	s.addAt(w, "203.0.113.11", 2*time.Second)
	s.Equal(3, w.TrackedClients())
	s.addAt(w, "203.0.113.12", 3*time.Second) // fifth attempt triggers GC

	// Only the banned client survives collection.
	s.Equal(1, w.TrackedClients())
	s.True(w.IsBannedAt("198.51.100.2", s.base.Add(3*time.Second)))
	s.False(w.IsBannedAt("203.0.113.10", s.base.Add(3*time.Second)))
}

func (s *WatchmanTestSuite) TestGCResetsAttemptCounter() {
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   100,
		Window:      1 * time.Second,
		BanDuration: time.Hour,
		GCThreshold: 3,
	})

	for i := 0; i < 3; i++ {
		s.addAt(w, fmt.Sprintf("203.0.113.%d", i), time.Duration(i)*time.Second)
	}
	s.Equal(0, w.TrackedClients())

	// The counter restarted: the next batch is tracked until the threshold again.
	s.addAt(w, "203.0.113.50", 10*time.Second)
	s.addAt(w, "203.0.113.51", 11*time.Second)
	s.Equal(2, w.TrackedClients())
}

func (s *WatchmanTestSuite) TestQuietClientHistoryResetsAfterGC() {
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   1,
		Window:      3 * time.Second,
		BanDuration: time.Hour,
		GCThreshold: 3,
	})

	// Three attempts at the limit, the third triggers GC and wipes history.
	s.addAt(w, "203.0.113.7", 0)
	s.addAt(w, "203.0.113.7", 1*time.Second)
	s.addAt(w, "203.0.113.7", 2*time.Second)
	s.Equal(0, w.TrackedClients())

	// Without the wipe this fourth attempt would have banned the client.
	s.addAt(w, "203.0.113.7", 2*time.Second)
	s.False(w.IsBannedAt("203.0.113.7", s.base.Add(2*time.Second)))
}

func (s *WatchmanTestSuite) TestFractionalRateLimit() {
	// One attempt per 10 seconds allowed; two in the same window ban.
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   0.1,
		Window:      10 * time.Second,
		BanDuration: time.Hour,
		GCThreshold: 1000,
	})

	s.addAt(w, "192.0.2.1", 0)
	s.False(w.IsBannedAt("192.0.2.1", s.base))
	s.addAt(w, "192.0.2.1", 9*time.Second)
	s.True(w.IsBannedAt("192.0.2.1", s.base.Add(9*time.Second)))
}

func (s *WatchmanTestSuite) TestUnknownIPIsNotBanned() {
	w := s.newWatchman(types.WatchmanConfig{
		RateLimit:   1,
		Window:      1 * time.Second,
		BanDuration: time.Hour,
		GCThreshold: 1000,
	})
	s.False(w.IsBannedAt("192.0.2.200", s.base))
}
