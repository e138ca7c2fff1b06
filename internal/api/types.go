package api

// LootRecord is one item allocation as submitted to the backend.
type LootRecord struct {
	PlayerName  string `json:"playerName"`
	ItemName    string `json:"itemName"`
	Quantity    int    `json:"quantity"`
	LootedFrom  string `json:"lootedFrom,omitempty"`
	WasAssigned bool   `json:"wasAssigned"`
}

// TicketPlayer identifies one player inside a lottery ticket.
type TicketPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ticket is one player's inclusive roll range in a loot lottery.
type Ticket struct {
	Player TicketPlayer `json:"player"`
	Lower  int          `json:"lower"`
	Upper  int          `json:"upper"`
}

// RollRange is the backend's ticket allocation for one lottery round.
type RollRange struct {
	Tickets     []Ticket `json:"tickets"`
	RangeString string   `json:"rangeString"`
}

// Upper returns the top of the generated range, the number the raid leader
// pastes into /random.
func (r RollRange) Upper() int {
	if len(r.Tickets) == 0 {
		return 0
	}
	return r.Tickets[len(r.Tickets)-1].Upper
}
