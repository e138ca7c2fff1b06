package overlay

import (
	"sync"

	"raidtick/internal/api"
)

// BoxWinner labels a loot entry that was not preceded by a winning roll.
// Items sent to the guild box instead of a player show up this way.
const BoxWinner = "box"

// HistoryEntry is one settled lottery: who won, on what roll, and what they
// picked up.
type HistoryEntry struct {
	Winner string `json:"winner"`
	Roll   int    `json:"roll"`
	Item   string `json:"item"`
}

const historyLimit = 4

// LottoState tracks the last published ticket range and resolves dice rolls
// against it. One officer rolls for everyone, so the winner is whoever owns
// the ticket the rolled value lands in, not the roller.
type LottoState struct {
	mu      sync.Mutex
	rng     *api.RollRange
	pending *HistoryEntry
	history []HistoryEntry
}

// NewLottoState creates an empty lottery state.
func NewLottoState() *LottoState {
	return &LottoState{}
}

// SetRange publishes a new ticket range and discards any unresolved roll
// from the previous one.
func (l *LottoState) SetRange(rng api.RollRange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rng = &rng
	l.pending = nil
}

// RecordRoll resolves a rolled value against the current range. It returns
// the winning ticket and true when the value lands in one. The winner is
// held until RecordLoot pairs an item with it.
func (l *LottoState) RecordRoll(value int) (api.Ticket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rng == nil {
		return api.Ticket{}, false
	}
	for _, t := range l.rng.Tickets {
		if value >= t.Lower && value <= t.Upper {
			l.pending = &HistoryEntry{Winner: t.Player.Name, Roll: value}
			return t, true
		}
	}
	return api.Ticket{}, false
}

// RecordLoot pairs a looted item with the held winner, or files it under
// the box when no winning roll preceded it.
func (l *LottoState) RecordLoot(item string) HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := HistoryEntry{Winner: BoxWinner, Item: item}
	if l.pending != nil {
		entry = *l.pending
		entry.Item = item
		l.pending = nil
	}

	l.history = append([]HistoryEntry{entry}, l.history...)
	if len(l.history) > historyLimit {
		l.history = l.history[:historyLimit]
	}
	return entry
}

// Range returns the current ticket range, or false when none is published.
func (l *LottoState) Range() (api.RollRange, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rng == nil {
		return api.RollRange{}, false
	}
	return *l.rng, true
}

// History returns the most recent settled lotteries, newest first.
func (l *LottoState) History() []HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]HistoryEntry, len(l.history))
	copy(out, l.history)
	return out
}
