package eqlog

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Bob", "bob"},
		{"  Bob  ", "bob"},
		{"ALICE", "alice"},
		{"bob", "bob"},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeSource(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Goblin", "goblin"},
		{"Goblin corpse", "goblin"},
		{"Goblin corpse.", "goblin"},
		{"goblin`s", "goblin"},
		{"goblin's", "goblin"},
		{"'Goblin'", "goblin"},
		{"  Froglok Warrior corpse  ", "froglok warrior"},
	}
	for _, c := range cases {
		if got := NormalizeSource(c.in); got != c.want {
			t.Errorf("NormalizeSource(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeItem(t *testing.T) {
	if got := NormalizeItem("Sword of Testing"); got != "sword of testing" {
		t.Errorf("got %q", got)
	}
	if got := NormalizeItem("Orb of Mastery."); got != "orb of mastery" {
		t.Errorf("got %q", got)
	}
}

// Normalizing an already-normalized token must be a no-op.
func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Goblin corpse.", "goblin`s", "Sword of Testing", "  Bob  ", "'quoted'"}
	for _, in := range inputs {
		once := NormalizeSource(in)
		if twice := NormalizeSource(once); twice != once {
			t.Errorf("NormalizeSource not idempotent for %q: %q then %q", in, once, twice)
		}
	}
	for _, in := range inputs {
		once := NormalizeName(in)
		if twice := NormalizeName(once); twice != once {
			t.Errorf("NormalizeName not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
