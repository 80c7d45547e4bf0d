package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shandysiswandi/gocustody/internal/challenge/outbound/store/storetest"
	"github.com/shandysiswandi/gocustody/internal/pkg/clock"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
)

func newTestBolt(t *testing.T) (*Bolt, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	b, err := NewBolt(BoltConfig{Path: filepath.Join(t.TempDir(), "challenges.db"), SweepInterval: time.Hour}, clk, newTestHMAC(t), instrument.NewNoop())
	if err != nil {
		t.Fatalf("NewBolt: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	return b, clk
}

func TestBolt(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Harness {
		b, clk := newTestBolt(t)
		return storetest.Harness{Store: b, Advance: clk.Advance}
	})
}

func TestBolt_MissingPath(t *testing.T) {
	if _, err := NewBolt(BoltConfig{}, clock.New(), nil, nil); err != ErrMissingPath {
		t.Fatalf("expected ErrMissingPath, got %v", err)
	}
}

func TestBolt_Sweep(t *testing.T) {
	// Arrange
	b, clk := newTestBolt(t)
	ctx := context.Background()

	if err := b.Put(ctx, storetest.Fixture("short", 5), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := b.Put(ctx, storetest.Fixture("long", 5), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	clk.Advance(2 * time.Minute)

	// Act
	n, err := b.sweep()

	// Assert
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept record, got %d", n)
	}
	if _, err := b.Get(ctx, "long"); err != nil {
		t.Fatalf("expected long-lived record to survive: %v", err)
	}
}
