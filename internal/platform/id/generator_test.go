package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGenerator(t *testing.T) {
	got, err := NewUUIDGenerator().NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected a uuid, got %q: %v", got, err)
	}
}

func TestSequence(t *testing.T) {
	seq := NewSequence("entry")
	first, _ := seq.NewID()
	second, _ := seq.NewID()
	if first != "entry-1" || second != "entry-2" {
		t.Fatalf("unexpected ids %q %q", first, second)
	}
}
