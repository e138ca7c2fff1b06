package main

import (
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"raidtick/internal/api"
)

// emit fans one event out to the app window and the external overlay feed.
func (a *App) emit(topic string, data interface{}) {
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, topic, data)
	}
	a.hub.Broadcast(topic, data)
}

// uiNotifier adapts session progress into frontend events and lottery
// state updates.
type uiNotifier struct {
	app *App
}

func (n *uiNotifier) Status(message string) {
	n.app.emit("watcher:status", map[string]interface{}{
		"watching": true,
		"message":  message,
	})
}

func (n *uiNotifier) TickRecorded(players []string, finalTick bool) {
	n.app.emit("attendance:tick", map[string]interface{}{
		"players":   players,
		"count":     len(players),
		"finalTick": finalTick,
	})
}

func (n *uiNotifier) ItemLooted(rec api.LootRecord) {
	entry := n.app.lotto.RecordLoot(rec.ItemName)
	n.app.emit("loot:item", map[string]interface{}{
		"player":      rec.PlayerName,
		"item":        rec.ItemName,
		"quantity":    rec.Quantity,
		"lootedFrom":  rec.LootedFrom,
		"wasAssigned": rec.WasAssigned,
		"winner":      entry.Winner,
		"history":     n.app.lotto.History(),
	})
}

func (n *uiNotifier) FetchingRollRange() {
	n.app.emit("lotto:fetching", map[string]interface{}{
		"fetching": true,
	})
}

func (n *uiNotifier) RangeGenerated(rng api.RollRange) {
	n.app.lotto.SetRange(rng)
	n.app.emit("lotto:range", map[string]interface{}{
		"tickets":     rng.Tickets,
		"rangeString": rng.RangeString,
		"upper":       rng.Upper(),
	})
}

func (n *uiNotifier) RollObserved(roller string, value int) {
	ticket, hit := n.app.lotto.RecordRoll(value)
	data := map[string]interface{}{
		"roller": roller,
		"value":  value,
		"hit":    hit,
	}
	if hit {
		data["winner"] = ticket.Player.Name
	}
	n.app.emit("lotto:roll", data)
}

func (n *uiNotifier) SessionEnded(reason string) {
	n.app.emit("watcher:status", map[string]interface{}{
		"watching": false,
		"message":  reason,
	})
}
