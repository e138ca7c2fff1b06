package submit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"raidtick/internal/api"
)

type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

type fakeTransport struct {
	mu              sync.Mutex
	attendanceCalls int
	lootCalls       int
	rangeCalls      int
	lootAccept      int // -1 accepts everything
	attendanceErr   error
	lootErr         error
	block           chan struct{} // when set, calls wait here before returning
}

func (f *fakeTransport) RecordAttendance(ctx context.Context, raidID string, players []string, finalTick bool) (bool, error) {
	f.mu.Lock()
	f.attendanceCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.attendanceErr != nil {
		return false, f.attendanceErr
	}
	return true, nil
}

func (f *fakeTransport) RecordLoot(ctx context.Context, raidID string, records []api.LootRecord) (int, error) {
	f.mu.Lock()
	f.lootCalls++
	accept := f.lootAccept
	f.mu.Unlock()
	if f.lootErr != nil {
		return 0, f.lootErr
	}
	if accept < 0 || accept > len(records) {
		accept = len(records)
	}
	return accept, nil
}

func (f *fakeTransport) RequestRollRange(ctx context.Context, players []string) (*api.RollRange, error) {
	f.mu.Lock()
	f.rangeCalls++
	f.mu.Unlock()
	tickets := make([]api.Ticket, len(players))
	for i, p := range players {
		tickets[i] = api.Ticket{Player: api.TicketPlayer{Name: p}, Lower: i*10 + 1, Upper: (i + 1) * 10}
	}
	return &api.RollRange{Tickets: tickets, RangeString: "/random 100"}, nil
}

func (f *fakeTransport) calls() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attendanceCalls, f.lootCalls, f.rangeCalls
}

func lootRec(player, item string) api.LootRecord {
	return api.LootRecord{PlayerName: player, ItemName: item, Quantity: 1, LootedFrom: "goblin"}
}

func TestAttendanceCooldown(t *testing.T) {
	clock := newFakeClock()
	tr := &fakeTransport{lootAccept: -1}
	s := NewScheduler(tr, "raid-1", Config{Now: clock.Now}, Hooks{})

	if !s.FlushAttendance(context.Background(), []string{"alice"}, false) {
		t.Fatal("first flush should launch")
	}
	s.Wait()

	if s.FlushAttendance(context.Background(), []string{"alice"}, false) {
		t.Error("second flush inside cooldown should be dropped")
	}

	clock.Advance(defaultAttendanceCooldown + time.Second)
	if !s.FlushAttendance(context.Background(), []string{"alice"}, false) {
		t.Error("flush after cooldown should launch")
	}
	s.Wait()

	if n, _, _ := tr.calls(); n != 2 {
		t.Errorf("attendance calls = %d, want 2", n)
	}
}

func TestFinalTickBypassesCooldown(t *testing.T) {
	clock := newFakeClock()
	tr := &fakeTransport{lootAccept: -1}

	var results []AttendanceResult
	done := make(chan struct{}, 4)
	s := NewScheduler(tr, "raid-1", Config{Now: clock.Now}, Hooks{
		Attendance: func(r AttendanceResult) {
			results = append(results, r)
			done <- struct{}{}
		},
	})

	s.FlushAttendance(context.Background(), []string{"alice"}, false)
	<-done

	// Inside the cooldown, but armed as final: must not be skipped.
	if !s.FlushAttendance(context.Background(), []string{"alice"}, true) {
		t.Fatal("final tick flush was dropped by cooldown")
	}
	<-done
	s.Wait()

	if len(results) != 2 || !results[1].FinalTick || !results[1].Accepted {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestAttendanceSingleFlight(t *testing.T) {
	clock := newFakeClock()
	tr := &fakeTransport{lootAccept: -1, block: make(chan struct{})}
	s := NewScheduler(tr, "raid-1", Config{Now: clock.Now}, Hooks{})

	if !s.FlushAttendance(context.Background(), []string{"alice"}, false) {
		t.Fatal("first flush should launch")
	}
	// Even a final tick is dropped while a submission is outstanding.
	if s.FlushAttendance(context.Background(), []string{"bob"}, true) {
		t.Error("overlapping flush should be dropped")
	}

	close(tr.block)
	s.Wait()

	if n, _, _ := tr.calls(); n != 1 {
		t.Errorf("attendance calls = %d, want 1", n)
	}
}

func TestLootPartialAcceptanceKeepsRemainder(t *testing.T) {
	clock := newFakeClock()
	tr := &fakeTransport{lootAccept: 2}
	s := NewScheduler(tr, "raid-1", Config{Now: clock.Now}, Hooks{})

	at := clock.Now()
	s.EnqueueLoot(lootRec("alice", "ring"), at)
	s.EnqueueLoot(lootRec("bob", "sword"), at)
	s.EnqueueLoot(lootRec("carol", "shield"), at)

	if !s.TryFlushLoot(context.Background()) {
		t.Fatal("flush should launch")
	}
	s.Wait()

	if got := s.QueuedLoot(); got != 1 {
		t.Errorf("queued after partial acceptance = %d, want 1", got)
	}
}

func TestLootCooldownSuppression(t *testing.T) {
	clock := newFakeClock()
	tr := &fakeTransport{lootAccept: -1}
	s := NewScheduler(tr, "raid-1", Config{Now: clock.Now}, Hooks{})

	s.EnqueueLoot(lootRec("alice", "ring"), clock.Now())
	if !s.TryFlushLoot(context.Background()) {
		t.Fatal("first flush should launch")
	}
	s.Wait()

	clock.Advance(time.Second)
	s.EnqueueLoot(lootRec("bob", "sword"), clock.Now())
	if s.TryFlushLoot(context.Background()) {
		t.Error("flush inside cooldown should be suppressed")
	}
	if got := s.QueuedLoot(); got != 1 {
		t.Errorf("suppressed flush changed the queue: %d records", got)
	}

	clock.Advance(defaultLootCooldown)
	if !s.TryFlushLoot(context.Background()) {
		t.Error("flush after cooldown should launch")
	}
	s.Wait()
	if got := s.QueuedLoot(); got != 0 {
		t.Errorf("queued after flush = %d, want 0", got)
	}
}

func TestLootFailureKeepsQueue(t *testing.T) {
	clock := newFakeClock()
	tr := &fakeTransport{lootErr: errors.New("backend down")}
	s := NewScheduler(tr, "raid-1", Config{Now: clock.Now}, Hooks{})

	at := clock.Now()
	s.EnqueueLoot(lootRec("alice", "ring"), at)
	s.EnqueueLoot(lootRec("bob", "sword"), at)

	s.TryFlushLoot(context.Background())
	s.Wait()

	if got := s.QueuedLoot(); got != 2 {
		t.Errorf("queued after failed push = %d, want 2", got)
	}

	// The failed push must not start the cooldown; clearing the error makes
	// the very next window eligible.
	tr.lootErr = nil
	if !s.TryFlushLoot(context.Background()) {
		t.Error("retry after failure should launch")
	}
	s.Wait()
	if got := s.QueuedLoot(); got != 0 {
		t.Errorf("queued after retry = %d, want 0", got)
	}
}

func TestDuplicateLootDropped(t *testing.T) {
	clock := newFakeClock()
	tr := &fakeTransport{lootAccept: -1}
	s := NewScheduler(tr, "raid-1", Config{Now: clock.Now}, Hooks{})

	at := clock.Now()
	if !s.EnqueueLoot(lootRec("alice", "ring"), at) {
		t.Fatal("first enqueue should be accepted")
	}
	if s.EnqueueLoot(lootRec("alice", "ring"), at) {
		t.Error("same record at the same timestamp should be dropped")
	}
	if !s.EnqueueLoot(lootRec("alice", "ring"), at.Add(time.Minute)) {
		t.Error("same record at a later timestamp is a new loot event")
	}
	if got := s.QueuedLoot(); got != 2 {
		t.Errorf("queued = %d, want 2", got)
	}
}

func TestRollRangeSingleFlight(t *testing.T) {
	clock := newFakeClock()
	tr := &fakeTransport{lootAccept: -1}

	got := make(chan *api.RollRange, 2)
	s := NewScheduler(tr, "raid-1", Config{Now: clock.Now}, Hooks{
		RollRange: func(rng *api.RollRange, err error) {
			if err != nil {
				t.Errorf("range error: %v", err)
			}
			got <- rng
		},
	})

	if !s.RequestRollRange(context.Background(), []string{"alice", "bob"}) {
		t.Fatal("range request should launch")
	}
	rng := <-got
	s.Wait()

	if len(rng.Tickets) != 2 {
		t.Fatalf("tickets = %d, want 2", len(rng.Tickets))
	}
	if rng.Tickets[1].Upper != 20 {
		t.Errorf("upper = %d, want 20", rng.Tickets[1].Upper)
	}
}
