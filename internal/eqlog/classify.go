package eqlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Line grammars, ordered from most to least specific. Order matters: the
// attendee grammar matches nearly any timestamped line, so it is only
// consulted inside a roster window and only after the window markers.
var (
	reFinalTick  = regexp.MustCompile(`(?i)RECORDING FINAL TICK`)
	reWhoStart   = regexp.MustCompile(`Players in EverQuest:`)
	reWhoEnd     = regexp.MustCompile(`There (?:are|is) ([0-9]+) player(?:s)? in EverQuest\.`)
	reAttendee   = regexp.MustCompile(`\[.+\] ([A-Za-z]+)`)
	reLooted     = regexp.MustCompile(`(?i)([A-Za-z]+) ha(?:s|ve) looted (a|an|[0-9]+) (.+?) from (?:a |an |the )?(.+?)(?: corpse)?\.?$`)
	reManualLoot = regexp.MustCompile(`([A-Za-z]+) LOOT (.+)$`)
	reAssigned   = regexp.MustCompile(`(?i)\b(a|an|[0-9]+) (.+?) (?:was|were) given to ([A-Za-z]+)`)
	reRollStart  = regexp.MustCompile(`(?i)GENERATE ROLL RANGE`)
	reRollResult = regexp.MustCompile(`A Magic Die is rolled by ([A-Za-z]+)\. It could have been any number from ([0-9]+) to ([0-9]+), but this time it turned up a ([0-9]+)\.`)
	reTimestamp  = regexp.MustCompile(`^\[([A-Za-z0-9: ]+)\]`)
)

const timestampLayout = "Mon Jan 02 15:04:05 2006"

// ParseTimestamp extracts the bracketed client timestamp from a line.
// Lines without a parseable timestamp are treated as happening now.
func ParseTimestamp(line string, now time.Time) time.Time {
	m := reTimestamp.FindStringSubmatch(line)
	if m == nil {
		return now
	}
	ts, err := time.ParseInLocation(timestampLayout, strings.TrimSpace(m[1]), time.Local)
	if err != nil {
		return now
	}
	return ts
}

// Classify maps one log line to at most one event. inWindow reports whether
// the session is currently inside a roster dump; selfName replaces the "you"
// the client uses for the watching character's own loot messages.
func Classify(line string, inWindow bool, selfName string) Event {
	// The loot/assignment grammars read free text that the timestamp prefix
	// can false-match against ("Jan" contains the article "an"), so they run
	// on the line body. The attendee grammar needs the bracket and keeps the
	// whole line.
	body := stripTimestamp(line)

	if reFinalTick.MatchString(body) {
		return Event{Kind: EventFinalTick}
	}
	if reWhoStart.MatchString(body) {
		return Event{Kind: EventAttendanceStart}
	}
	if m := reWhoEnd.FindStringSubmatch(body); m != nil {
		count, _ := strconv.Atoi(m[1])
		return Event{Kind: EventAttendanceEnd, PlayerCount: count}
	}
	if inWindow {
		if m := reAttendee.FindStringSubmatch(line); m != nil {
			return Event{Kind: EventAttendeeName, Player: NormalizeName(m[1])}
		}
	}
	if ev, ok := extractLooted(body, selfName); ok {
		return ev
	}
	if m := reManualLoot.FindStringSubmatch(body); m != nil {
		// Operator shorthand: rewrite to the canonical looted shape and run
		// it back through the looted extractor.
		rewritten := fmt.Sprintf("%s has looted a %s from %s.", m[1], m[2], AssignedSource)
		if ev, ok := extractLooted(rewritten, selfName); ok {
			return ev
		}
	}
	if m := reAssigned.FindStringSubmatch(body); m != nil {
		return Event{
			Kind:     EventLootAssigned,
			Player:   resolvePlayer(m[3], selfName),
			Item:     NormalizeItem(m[2]),
			Quantity: parseQuantity(m[1]),
		}
	}
	if reRollStart.MatchString(body) {
		return Event{Kind: EventRollRangeStart}
	}
	if m := reRollResult.FindStringSubmatch(body); m != nil {
		value, _ := strconv.Atoi(m[4])
		return Event{Kind: EventRollResult, Player: NormalizeName(m[1]), Roll: value}
	}
	return Event{Kind: EventNone}
}

// stripTimestamp removes the leading bracketed timestamp, when present.
func stripTimestamp(line string) string {
	if loc := reTimestamp.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:])
	}
	return line
}

func extractLooted(line, selfName string) (Event, bool) {
	m := reLooted.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	return Event{
		Kind:     EventLootLooted,
		Player:   resolvePlayer(m[1], selfName),
		Quantity: parseQuantity(m[2]),
		Item:     NormalizeItem(m[3]),
		Source:   NormalizeSource(m[4]),
	}, true
}

// resolvePlayer normalizes a player token, substituting the session's own
// character for the "you" the client writes in first-person messages.
func resolvePlayer(name, selfName string) string {
	if strings.EqualFold(name, "you") {
		return NormalizeName(selfName)
	}
	return NormalizeName(name)
}

// parseQuantity reads a cardinal quantity token, defaulting articles and
// anything unparseable to 1.
func parseQuantity(tok string) int {
	n, err := strconv.Atoi(tok)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
