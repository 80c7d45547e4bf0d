package uid

import (
	"testing"

	"github.com/google/uuid"
)

func TestRandomUUID(t *testing.T) {
	g := NewRandomUUID()
	seen := make(map[string]struct{}, 1000)

	for range 1000 {
		id := g.Generate()
		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("invalid uuid %q: %v", id, err)
		}
		if parsed.Version() != 4 {
			t.Fatalf("expected version 4, got %d", parsed.Version())
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestUUIDIsV7(t *testing.T) {
	parsed, err := uuid.Parse(NewUUID().Generate())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
}

func TestSnowflake(t *testing.T) {
	g, err := NewSnowflakeNode(1)
	if err != nil {
		t.Fatalf("NewSnowflakeNode: %v", err)
	}

	a, b := g.Generate(), g.Generate()
	if b <= a {
		t.Fatalf("expected increasing ids, got %d then %d", a, b)
	}

	if _, err := NewSnowflakeNode(4096); err == nil {
		t.Fatalf("expected error for out of range node id")
	}
}
