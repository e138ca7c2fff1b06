package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"raidtick/internal/api"
	"raidtick/internal/eqlog"
	"raidtick/internal/submit"
)

// ErrNoRaidID is returned when a session is created without a raid.
var ErrNoRaidID = errors.New("cannot watch a log without a raid id")

// Notifier receives user-visible progress from a session. Calls happen on
// the line-processing or submission goroutines and must not block.
type Notifier interface {
	Status(message string)
	TickRecorded(players []string, finalTick bool)
	ItemLooted(rec api.LootRecord)
	FetchingRollRange()
	RangeGenerated(rng api.RollRange)
	RollObserved(roller string, value int)
	SessionEnded(reason string)
}

// PositionSaver persists where a session got to in a log file so a restart
// resumes instead of reprocessing.
type PositionSaver interface {
	Save(fileName string, offset int64, watermark time.Time) error
}

// Config describes one watching session.
type Config struct {
	RaidID        string
	LogPath       string
	CharacterName string
	ServerName    string

	// StartAt is the watermark to resume from. Zero means "now": history
	// already in the file is skipped, like the original session start.
	StartAt time.Time
	// Offset is the byte offset to seek the tail to.
	Offset int64

	PendingLimit int
	Submit       submit.Config

	// Positions, when set, receives periodic offset/watermark checkpoints.
	Positions PositionSaver

	// OpenTail overrides the tail factory, for tests.
	OpenTail func(path string, offset int64) (Tailer, error)
}

// Session drives the whole derivation pipeline for one (raid, log file)
// pair. All session state is owned by the line-processing goroutine; the
// only concurrent entry points are the scheduler result hooks and Stop.
type Session struct {
	cfg    Config
	sched  *submit.Scheduler
	notify Notifier
	now    func() time.Time

	tailer   Tailer
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	watermark     time.Time
	recording     bool
	finalTick     bool
	awaitingRange bool
	attendees     map[string]struct{}
	roster        []string
	pending       *pendingIndex
}

// New validates the config and builds a session. It does not touch the log
// file until Start.
func New(cfg Config, transport submit.Transport, notify Notifier) (*Session, error) {
	if cfg.RaidID == "" {
		return nil, ErrNoRaidID
	}
	if notify == nil {
		notify = noopNotifier{}
	}
	if cfg.OpenTail == nil {
		cfg.OpenTail = TailFile
	}

	now := cfg.Submit.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:       cfg,
		notify:    notify,
		now:       now,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		attendees: make(map[string]struct{}),
		pending:   newPendingIndex(cfg.PendingLimit),
	}

	s.watermark = cfg.StartAt
	if s.watermark.IsZero() {
		s.watermark = now()
	}

	s.sched = submit.NewScheduler(transport, cfg.RaidID, cfg.Submit, submit.Hooks{
		Attendance: s.onAttendanceResult,
		Loot:       s.onLootResult,
		RollRange:  s.onRollRangeResult,
	})
	return s, nil
}

// Start opens the tail and begins processing lines.
func (s *Session) Start() error {
	tl, err := s.cfg.OpenTail(s.cfg.LogPath, s.cfg.Offset)
	if err != nil {
		return fmt.Errorf("open tail for %s: %w", s.cfg.LogPath, err)
	}
	s.tailer = tl

	log.Printf("[Watcher] watching %s for raid %s", s.cfg.LogPath, s.cfg.RaidID)
	s.notify.Status(fmt.Sprintf("processing file: %s", s.cfg.LogPath))

	go s.run()
	return nil
}

// Stop ends the session and releases the tail. Safe to call at any point,
// from any goroutine, and more than once. It does not cancel a submission
// that is already on the wire.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.tailer != nil {
			if err := s.tailer.Stop(); err != nil {
				log.Printf("[Watcher] tail stop: %v", err)
			}
		}
		s.cancel()
		log.Printf("[Watcher] session for raid %s stopped", s.cfg.RaidID)
	})
}

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Active reports whether the session is still running.
func (s *Session) Active() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Session) run() {
	// The ticker retries queued loot and checkpoints the read position even
	// when the log goes quiet.
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case line, ok := <-s.tailer.Lines():
			if !ok {
				return
			}
			s.processLine(line)
		case <-ticker.C:
			s.sched.TryFlushLoot(s.ctx)
			s.checkpoint()
		case <-s.done:
			s.checkpoint()
			return
		}
	}
}

// processLine runs the full pipeline for one line. A failure handling one
// line must never take down the session.
func (s *Session) processLine(line string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Watcher] line handler panicked: %v (line %q)", r, line)
		}
	}()

	ts := eqlog.ParseTimestamp(line, s.now())
	if ts.Before(s.watermark) {
		return
	}

	ev := eqlog.Classify(line, s.recording, s.cfg.CharacterName)
	s.handle(ev, ts)
	s.watermark = ts
}

func (s *Session) handle(ev eqlog.Event, ts time.Time) {
	switch ev.Kind {
	case eqlog.EventFinalTick:
		s.finalTick = true
		s.notify.Status("final tick armed: the next attendance flush ends the session")

	case eqlog.EventAttendanceStart:
		s.recording = true
		s.notify.Status("attendance recording started...")

	case eqlog.EventAttendeeName:
		if _, ok := s.attendees[ev.Player]; !ok {
			s.attendees[ev.Player] = struct{}{}
			s.roster = append(s.roster, ev.Player)
		}

	case eqlog.EventAttendanceEnd:
		s.recording = false
		s.notify.Status("attendance recording ended...")
		s.finishWindow()

	case eqlog.EventLootLooted:
		rec := s.correlate(ev)
		if s.sched.EnqueueLoot(rec, ts) {
			s.notify.ItemLooted(rec)
			s.sched.TryFlushLoot(s.ctx)
		}

	case eqlog.EventLootAssigned:
		s.pending.add(ev.Player, ev.Item, ev.Quantity)
		s.notify.Status(fmt.Sprintf("%s assigned to %s, awaiting pickup", ev.Item, ev.Player))

	case eqlog.EventRollRangeStart:
		// Re-entry while already awaiting is a no-op.
		if !s.awaitingRange {
			s.awaitingRange = true
			s.notify.FetchingRollRange()
			s.notify.Status("roll range requested: run /who to collect entrants")
		}

	case eqlog.EventRollResult:
		s.notify.RollObserved(ev.Player, ev.Roll)
	}
}

// finishWindow closes a roster dump: either a normal attendance flush or,
// when a lottery is pending, a ticket range request. The roster is cleared
// unconditionally either way; a dropped or failed submission loses the tick
// rather than blocking the tailer.
func (s *Session) finishWindow() {
	roster := s.roster
	s.roster = nil
	s.attendees = make(map[string]struct{})

	if len(roster) == 0 {
		return
	}

	if s.awaitingRange {
		s.awaitingRange = false
		if s.sched.RequestRollRange(s.ctx, roster) {
			s.notify.Status(fmt.Sprintf("requesting roll range for %d entrant(s)", len(roster)))
		}
		return
	}

	final := s.finalTick
	if s.sched.FlushAttendance(s.ctx, roster, final) {
		s.finalTick = false
	}
}

// correlate turns a looted event into the outbound record, consuming a
// matching pending assignment when one exists.
func (s *Session) correlate(ev eqlog.Event) api.LootRecord {
	if pa, ok := s.pending.take(ev.Player, ev.Item); ok {
		return api.LootRecord{
			PlayerName:  ev.Player,
			ItemName:    ev.Item,
			Quantity:    pa.Quantity,
			LootedFrom:  eqlog.AssignedSource,
			WasAssigned: true,
		}
	}
	return api.LootRecord{
		PlayerName:  ev.Player,
		ItemName:    ev.Item,
		Quantity:    ev.Quantity,
		LootedFrom:  ev.Source,
		WasAssigned: ev.Source == eqlog.AssignedSource,
	}
}

func (s *Session) onAttendanceResult(res submit.AttendanceResult) {
	if !res.Accepted {
		// The roster was already cleared; the tick is lost, by the same
		// trade-off the attendance flush documents.
		s.notify.Status(fmt.Sprintf("attendance tick with %d player(s) was not recorded", len(res.Players)))
		return
	}

	s.notify.TickRecorded(res.Players, res.FinalTick)
	if res.FinalTick {
		s.notify.SessionEnded("final tick recorded")
		s.Stop()
	}
}

func (s *Session) onLootResult(accepted []api.LootRecord, err error) {
	if err != nil {
		s.notify.Status(fmt.Sprintf("loot push failed, %d record(s) still queued", s.sched.QueuedLoot()))
		return
	}
	if len(accepted) > 0 {
		s.notify.Status(fmt.Sprintf("recorded %d loot record(s)", len(accepted)))
	}
}

func (s *Session) onRollRangeResult(rng *api.RollRange, err error) {
	if err != nil || rng == nil {
		s.notify.Status("roll range request failed")
		return
	}
	s.notify.RangeGenerated(*rng)
}

func (s *Session) checkpoint() {
	if s.cfg.Positions == nil || s.tailer == nil {
		return
	}
	off, err := s.tailer.Offset()
	if err != nil {
		return
	}
	if err := s.cfg.Positions.Save(filepath.Base(s.cfg.LogPath), off, s.watermark); err != nil {
		log.Printf("[Watcher] position checkpoint failed: %v", err)
	}
}

// Scheduler exposes the session's submission scheduler, mainly so callers
// can flush or inspect queued loot.
func (s *Session) Scheduler() *submit.Scheduler { return s.sched }

type noopNotifier struct{}

func (noopNotifier) Status(string)                {}
func (noopNotifier) TickRecorded([]string, bool)  {}
func (noopNotifier) ItemLooted(api.LootRecord)    {}
func (noopNotifier) FetchingRollRange()           {}
func (noopNotifier) RangeGenerated(api.RollRange) {}
func (noopNotifier) RollObserved(string, int)     {}
func (noopNotifier) SessionEnded(string)          {}
