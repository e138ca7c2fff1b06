package eqlog

// AssignedSource marks loot that was verbally allocated by the loot council
// rather than confirmed from a corpse loot message.
const AssignedSource = "manually assigned"

// EventKind identifies what a log line turned out to be.
type EventKind int

const (
	EventNone EventKind = iota
	EventFinalTick
	EventAttendanceStart
	EventAttendanceEnd
	EventAttendeeName
	EventLootLooted
	EventLootAssigned
	EventRollRangeStart
	EventRollResult
)

func (k EventKind) String() string {
	switch k {
	case EventFinalTick:
		return "final-tick"
	case EventAttendanceStart:
		return "attendance-start"
	case EventAttendanceEnd:
		return "attendance-end"
	case EventAttendeeName:
		return "attendee-name"
	case EventLootLooted:
		return "loot-looted"
	case EventLootAssigned:
		return "loot-assigned"
	case EventRollRangeStart:
		return "roll-range-start"
	case EventRollResult:
		return "roll-result"
	default:
		return "none"
	}
}

// Event is the result of classifying one log line. Only the fields that make
// sense for the Kind are populated; everything extracted from the line has
// already been normalized.
type Event struct {
	Kind EventKind

	// Player is the attendee, looter, assignee or roller depending on Kind.
	Player string

	// PlayerCount is the count reported by the attendance-end line. It is
	// informational only and never validated against the names seen.
	PlayerCount int

	Item     string
	Quantity int
	Source   string

	Roll int
}
