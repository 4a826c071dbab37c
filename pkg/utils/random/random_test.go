package random

import (
	"strings"
	"testing"
)

func TestRoomIDAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := RoomID()
		if len(id) != RoomIDLength {
			t.Fatalf("expected length %d, got %q", RoomIDLength, id)
		}
		for _, r := range id {
			if !strings.ContainsRune(roomAlphabet, r) {
				t.Fatalf("unexpected rune %q in %q", r, id)
			}
		}
	}
}

func TestCodeNonPositive(t *testing.T) {
	if got := Code(0); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}
