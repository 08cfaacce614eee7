package ui

import "testing"

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 || names[0] != "Dracula" {
		t.Fatalf("ThemeNames() = %v", names)
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Dracula"); got != "Nightfox" {
		t.Fatalf("NextTheme(Dracula) = %q, want Nightfox", got)
	}
	if got := NextTheme("Slate"); got != "Dracula" {
		t.Fatalf("NextTheme(Slate) = %q, want Dracula", got)
	}
	if got := NextTheme("Unknown"); got != "Dracula" {
		t.Fatalf("NextTheme(Unknown) = %q, want Dracula", got)
	}
}

func TestGetThemeFallsBack(t *testing.T) {
	if GetTheme("Slate").Name != "Slate" {
		t.Fatalf("GetTheme(Slate) wrong")
	}
	if GetTheme("Unknown").Name != "Dracula" {
		t.Fatalf("GetTheme(Unknown) should fall back to Dracula")
	}
}

func TestEveryThemeColorsEveryState(t *testing.T) {
	states := []string{"uninitialized", "probing", "setup-sandboxed", "setup-manual", "active", "paused", "needs-resetup", "idle", "pending", "writing"}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, s := range states {
			if th.StateColors[s] == "" {
				t.Fatalf("theme %s has no color for %s", name, s)
			}
		}
	}
}

func TestTruncateHelpers(t *testing.T) {
	if got := truncate("abcdefgh", 5); got != "ab..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncateMiddle("/home/user/notes/dir", 10); got != "/ho.../dir" {
		t.Fatalf("truncateMiddle = %q", got)
	}
	if got := truncateMiddle("short", 10); got != "short" {
		t.Fatalf("truncateMiddle short = %q", got)
	}
}
