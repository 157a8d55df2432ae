package dat

import "testing"

func TestIsArcadeSignature(t *testing.T) {
	cases := map[string]bool{
		"MAME":           true,
		"FinalBurn Neo":  true,
		"Final Burn Neo": true,
		"Mame Cabinet":   true,
		"Redump":         false,
		"No-Intro":       false,
		"":               false,
	}

	for name, want := range cases {
		if got := IsArcadeSignature(name); got != want {
			t.Errorf("IsArcadeSignature(%q) = %v, want %v", name, got, want)
		}
	}
}
