package eqlog

import "strings"

// NormalizeName canonicalizes a player name: lower-case and trim only.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeItem canonicalizes an item name for comparison and storage.
func NormalizeItem(s string) string {
	return normalizeFreeText(s)
}

// NormalizeSource canonicalizes a loot source (corpse/NPC name).
func NormalizeSource(s string) string {
	return normalizeFreeText(s)
}

// normalizeFreeText applies the shared rules for free-text tokens, in order:
// lower-case, trim, strip wrapping quotes, strip a trailing possessive
// (EverQuest uses a backtick possessive, chat often uses an apostrophe),
// strip the literal word "corpse", strip a trailing period.
func normalizeFreeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "'`\"")
	s = strings.TrimSuffix(s, "'s")
	s = strings.TrimSuffix(s, "`s")
	s = strings.TrimSpace(strings.ReplaceAll(s, "corpse", ""))
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
