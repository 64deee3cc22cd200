package utils

import "testing"

func TestNormalizeWordID(t *testing.T) {
	cases := map[string]string{
		"bravequietotter":    "bravequietotter",
		"Brave Quiet Otter":  "bravequietotter",
		"  brave-quiet_otter": "bravequietotter",
		"BRAVEQUIETOTTER\n":  "bravequietotter",
	}
	for in, want := range cases {
		if got := NormalizeWordID(in); got != want {
			t.Fatalf("NormalizeWordID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	name, ok := NormalizeName("  Ada   Lovelace ", 64)
	if !ok || name != "Ada Lovelace" {
		t.Fatalf("got %q %v", name, ok)
	}
	if _, ok := NormalizeName("   ", 64); ok {
		t.Fatalf("blank name should be rejected")
	}
	if _, ok := NormalizeName("abcdef", 5); ok {
		t.Fatalf("long name should be rejected")
	}
	composed, _ := NormalizeName("Jose\u0301", 64)
	if composed != "Jos\u00e9" {
		t.Fatalf("expected NFC composition, got %q", composed)
	}
}

func TestSameAnswer(t *testing.T) {
	if !SameAnswer(" Open Sesame ", "open sesame") {
		t.Fatalf("case and space should not matter")
	}
	if !SameAnswer("\u00c9COLE", "e\u0301cole") {
		t.Fatalf("case folding and composition expected")
	}
	if SameAnswer("yes", "no") {
		t.Fatalf("different answers matched")
	}
}
