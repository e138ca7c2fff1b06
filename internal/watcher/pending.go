package watcher

// defaultPendingLimit bounds how many unconfirmed assignments a session
// keeps. Announcements that never see a confirming loot line would otherwise
// accumulate for the whole raid.
const defaultPendingLimit = 128

// pendingAssignment is an item verbally allocated to a player, waiting for
// the loot message that confirms the pickup.
type pendingAssignment struct {
	Player   string
	Item     string
	Quantity int
}

// pendingIndex keeps unconfirmed assignments keyed by (player, item), FIFO
// per key so duplicate announcements are consumed in announcement order.
// When the cap is hit the oldest assignment overall is evicted.
type pendingIndex struct {
	byKey map[string][]*pendingAssignment
	order []*pendingAssignment
	limit int
}

func newPendingIndex(limit int) *pendingIndex {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	return &pendingIndex{
		byKey: make(map[string][]*pendingAssignment),
		limit: limit,
	}
}

func assignmentKey(player, item string) string {
	return player + "\x00" + item
}

func (p *pendingIndex) add(player, item string, quantity int) {
	if len(p.order) >= p.limit {
		p.evictOldest()
	}
	pa := &pendingAssignment{Player: player, Item: item, Quantity: quantity}
	k := assignmentKey(player, item)
	p.byKey[k] = append(p.byKey[k], pa)
	p.order = append(p.order, pa)
}

// take consumes the oldest unconfirmed assignment for (player, item).
func (p *pendingIndex) take(player, item string) (*pendingAssignment, bool) {
	k := assignmentKey(player, item)
	list := p.byKey[k]
	if len(list) == 0 {
		return nil, false
	}
	pa := list[0]
	if len(list) == 1 {
		delete(p.byKey, k)
	} else {
		p.byKey[k] = list[1:]
	}
	p.removeFromOrder(pa)
	return pa, true
}

func (p *pendingIndex) contains(player, item string) bool {
	return len(p.byKey[assignmentKey(player, item)]) > 0
}

func (p *pendingIndex) size() int {
	return len(p.order)
}

func (p *pendingIndex) evictOldest() {
	if len(p.order) == 0 {
		return
	}
	oldest := p.order[0]
	p.order = p.order[1:]

	k := assignmentKey(oldest.Player, oldest.Item)
	list := p.byKey[k]
	for i, pa := range list {
		if pa == oldest {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(p.byKey, k)
	} else {
		p.byKey[k] = list
	}
}

func (p *pendingIndex) removeFromOrder(target *pendingAssignment) {
	for i, pa := range p.order {
		if pa == target {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}
