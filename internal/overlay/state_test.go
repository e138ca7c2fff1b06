package overlay

import (
	"fmt"
	"testing"

	"raidtick/internal/api"
)

func testRange() api.RollRange {
	return api.RollRange{
		Tickets: []api.Ticket{
			{Player: api.TicketPlayer{ID: "p1", Name: "alice"}, Lower: 1, Upper: 40},
			{Player: api.TicketPlayer{ID: "p2", Name: "bob"}, Lower: 41, Upper: 100},
		},
		RangeString: "1-100",
	}
}

func TestRecordRollFindsOwningTicket(t *testing.T) {
	l := NewLottoState()
	l.SetRange(testRange())

	tests := []struct {
		value  int
		winner string
		hit    bool
	}{
		{1, "alice", true},
		{40, "alice", true},
		{41, "bob", true},
		{100, "bob", true},
		{101, "", false},
		{0, "", false},
	}
	for _, tc := range tests {
		ticket, ok := l.RecordRoll(tc.value)
		if ok != tc.hit {
			t.Fatalf("RecordRoll(%d) hit = %v, want %v", tc.value, ok, tc.hit)
		}
		if ok && ticket.Player.Name != tc.winner {
			t.Fatalf("RecordRoll(%d) winner = %q, want %q", tc.value, ticket.Player.Name, tc.winner)
		}
	}
}

func TestRecordRollWithoutRangeMisses(t *testing.T) {
	l := NewLottoState()
	if _, ok := l.RecordRoll(10); ok {
		t.Fatal("a roll with no published range cannot win")
	}
}

func TestRecordLootPairsWithHeldWinner(t *testing.T) {
	l := NewLottoState()
	l.SetRange(testRange())

	l.RecordRoll(42)
	entry := l.RecordLoot("sword of testing")
	if entry.Winner != "bob" || entry.Roll != 42 || entry.Item != "sword of testing" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	// The winner is consumed; the next item without a roll goes to the box.
	entry = l.RecordLoot("rusty dagger")
	if entry.Winner != BoxWinner {
		t.Fatalf("Winner = %q, want %q", entry.Winner, BoxWinner)
	}
}

func TestSetRangeDiscardsUnresolvedRoll(t *testing.T) {
	l := NewLottoState()
	l.SetRange(testRange())
	l.RecordRoll(10)

	l.SetRange(testRange())
	entry := l.RecordLoot("sword of testing")
	if entry.Winner != BoxWinner {
		t.Fatalf("Winner = %q, want %q after range reset", entry.Winner, BoxWinner)
	}
}

func TestHistoryKeepsFourNewestFirst(t *testing.T) {
	l := NewLottoState()
	for i := 0; i < 6; i++ {
		l.RecordLoot(fmt.Sprintf("item %d", i))
	}

	hist := l.History()
	if len(hist) != 4 {
		t.Fatalf("history length = %d, want 4", len(hist))
	}
	if hist[0].Item != "item 5" || hist[3].Item != "item 2" {
		t.Fatalf("unexpected history order: %+v", hist)
	}
}
