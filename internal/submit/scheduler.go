package submit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"raidtick/internal/api"

	"github.com/bits-and-blooms/bloom/v3"
)

// Transport is the backend surface the scheduler submits to.
type Transport interface {
	RecordAttendance(ctx context.Context, raidID string, playerNames []string, finalTick bool) (bool, error)
	RecordLoot(ctx context.Context, raidID string, records []api.LootRecord) (int, error)
	RequestRollRange(ctx context.Context, playerNames []string) (*api.RollRange, error)
}

// Config tunes the scheduler's pacing. Zero values take the defaults.
type Config struct {
	// AttendanceCooldown is the minimum gap between attendance ticks. A
	// final tick bypasses it so the terminal flush is never skipped.
	AttendanceCooldown time.Duration
	// LootCooldown is the minimum gap between loot batch pushes.
	LootCooldown time.Duration
	// Now is the clock, overridable in tests.
	Now func() time.Time
}

const (
	defaultAttendanceCooldown = 15 * time.Second
	defaultLootCooldown       = 10 * time.Second
)

func (c Config) withDefaults() Config {
	if c.AttendanceCooldown <= 0 {
		c.AttendanceCooldown = defaultAttendanceCooldown
	}
	if c.LootCooldown <= 0 {
		c.LootCooldown = defaultLootCooldown
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// AttendanceResult reports the outcome of one attendance flush.
type AttendanceResult struct {
	Players   []string
	FinalTick bool
	Accepted  bool
	Err       error
}

// Hooks receive submission outcomes. They are called from the submission
// goroutine, never while the scheduler's lock is held. Nil hooks are skipped.
type Hooks struct {
	Attendance func(AttendanceResult)
	Loot       func(accepted []api.LootRecord, err error)
	RollRange  func(rng *api.RollRange, err error)
}

// Scheduler paces and single-flights submissions to the backend. All of its
// guard state is per instance, one instance per session, so concurrent raids
// never share cooldowns.
type Scheduler struct {
	transport Transport
	raidID    string
	cfg       Config
	hooks     Hooks

	mu                 sync.Mutex
	attendanceInFlight bool
	lootInFlight       bool
	rangeInFlight      bool
	lastAttendance     time.Time
	lastLoot           time.Time
	lootQueue          []api.LootRecord
	seen               *bloom.BloomFilter

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler for one raid session.
func NewScheduler(transport Transport, raidID string, cfg Config, hooks Hooks) *Scheduler {
	return &Scheduler{
		transport: transport,
		raidID:    raidID,
		cfg:       cfg.withDefaults(),
		hooks:     hooks,
		seen:      bloom.NewWithEstimates(100000, 0.001),
	}
}

// FlushAttendance submits one attendance tick. It returns false when the
// tick was dropped by the single-flight guard or the cooldown; dropped ticks
// are not retried, the caller has already cleared its roster.
func (s *Scheduler) FlushAttendance(ctx context.Context, players []string, finalTick bool) bool {
	s.mu.Lock()
	if s.attendanceInFlight {
		s.mu.Unlock()
		log.Println("[Submit] attendance tick dropped: submission already in flight")
		return false
	}
	if !finalTick && s.cfg.Now().Sub(s.lastAttendance) < s.cfg.AttendanceCooldown {
		s.mu.Unlock()
		log.Println("[Submit] attendance tick dropped: cooldown")
		return false
	}
	s.attendanceInFlight = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ok, err := s.transport.RecordAttendance(ctx, s.raidID, players, finalTick)
		accepted := ok && err == nil

		s.mu.Lock()
		s.attendanceInFlight = false
		if accepted {
			s.lastAttendance = s.cfg.Now()
		}
		s.mu.Unlock()

		if err != nil {
			log.Printf("[Submit] attendance tick failed: %v", err)
		}
		if s.hooks.Attendance != nil {
			s.hooks.Attendance(AttendanceResult{Players: players, FinalTick: finalTick, Accepted: accepted, Err: err})
		}
	}()
	return true
}

// EnqueueLoot queues one loot record for the next eligible batch push.
// Duplicates inside the dedup window are dropped; the return value reports
// whether the record was queued.
func (s *Scheduler) EnqueueLoot(rec api.LootRecord, at time.Time) bool {
	key := fmt.Sprintf("%s|%s|%d|%d", rec.PlayerName, rec.ItemName, rec.Quantity, at.Unix())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen.TestAndAddString(key) {
		log.Printf("[Submit] duplicate loot dropped: %s x%d to %s", rec.ItemName, rec.Quantity, rec.PlayerName)
		return false
	}
	s.lootQueue = append(s.lootQueue, rec)
	return true
}

// TryFlushLoot pushes the queued loot batch when a submission window is
// open. Records the backend does not accept stay queued for the next window.
func (s *Scheduler) TryFlushLoot(ctx context.Context) bool {
	s.mu.Lock()
	if len(s.lootQueue) == 0 || s.lootInFlight {
		s.mu.Unlock()
		return false
	}
	if s.cfg.Now().Sub(s.lastLoot) < s.cfg.LootCooldown {
		s.mu.Unlock()
		return false
	}
	batch := make([]api.LootRecord, len(s.lootQueue))
	copy(batch, s.lootQueue)
	s.lootInFlight = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		accepted, err := s.transport.RecordLoot(ctx, s.raidID, batch)
		if accepted < 0 {
			accepted = 0
		}
		if accepted > len(batch) {
			accepted = len(batch)
		}

		s.mu.Lock()
		s.lootInFlight = false
		// New records may have been queued behind the batch while it was in
		// flight; the accepted count applies to the batch prefix only.
		s.lootQueue = s.lootQueue[accepted:]
		if err == nil {
			s.lastLoot = s.cfg.Now()
		}
		s.mu.Unlock()

		if err != nil {
			log.Printf("[Submit] loot push failed, %d record(s) stay queued: %v", len(batch), err)
		} else if accepted < len(batch) {
			log.Printf("[Submit] loot push partially accepted: %d/%d", accepted, len(batch))
		}
		if s.hooks.Loot != nil {
			s.hooks.Loot(batch[:accepted], err)
		}
	}()
	return true
}

// RequestRollRange fetches a lottery ticket allocation for the given
// players. Overlapping requests are dropped, there is no cooldown.
func (s *Scheduler) RequestRollRange(ctx context.Context, players []string) bool {
	s.mu.Lock()
	if s.rangeInFlight {
		s.mu.Unlock()
		return false
	}
	s.rangeInFlight = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rng, err := s.transport.RequestRollRange(ctx, players)

		s.mu.Lock()
		s.rangeInFlight = false
		s.mu.Unlock()

		if err != nil {
			log.Printf("[Submit] roll range request failed: %v", err)
		}
		if s.hooks.RollRange != nil {
			s.hooks.RollRange(rng, err)
		}
	}()
	return true
}

// QueuedLoot returns how many loot records are waiting for a push window.
func (s *Scheduler) QueuedLoot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lootQueue)
}

// Wait blocks until all outstanding submissions have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
