package keygen

import (
	"strings"
	"testing"
)

func TestSequenceLength(t *testing.T) {
	for _, length := range []int{1, 16, 32, 64} {
		if got := len(Sequence(length, Options{})); got != length {
			t.Errorf("Sequence(%d): got length %d", length, got)
		}
	}
}

func TestSequenceNeverEndsWithDot(t *testing.T) {
	for i := 0; i < 200; i++ {
		key := Sequence(DefaultLength, Options{})
		if strings.HasSuffix(key, ".") {
			t.Fatalf("sequence ends with a dot: %q", key)
		}
	}
}

func TestSequenceNeverContainsConsecutiveDots(t *testing.T) {
	for i := 0; i < 200; i++ {
		key := Sequence(DefaultLength, Options{})
		if strings.Contains(key, "..") {
			t.Fatalf("sequence contains consecutive dots: %q", key)
		}
	}
}

func TestSequenceLettersOnly(t *testing.T) {
	for i := 0; i < 50; i++ {
		key := Sequence(DefaultLength, Options{UseLetters: true})
		if strings.Contains(key, ".") {
			t.Fatalf("letters-only sequence contains a dot: %q", key)
		}
		for _, r := range key {
			if !strings.ContainsRune(letters, r) {
				t.Fatalf("unexpected symbol %q in %q", r, key)
			}
		}
	}
}

func TestSequencesDiffer(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key := Sequence(DefaultLength, Options{UseLetters: true})
		if seen[key] {
			t.Fatalf("duplicate sequence generated: %q", key)
		}
		seen[key] = true
	}
}
