package store

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/pkg/clock"
	"github.com/shandysiswandi/gocustody/internal/pkg/hash"
)

// Memory is a single-process store. A mutex makes every operation atomic.
type Memory struct {
	mu      sync.Mutex
	records map[string]record
	clock   clock.Clocker
	keyer   keyer
}

// NewMemory returns an empty Memory store. h may be nil to key by raw id.
func NewMemory(clk clock.Clocker, h hash.Hash) *Memory {
	return &Memory{
		records: make(map[string]record),
		clock:   clk,
		keyer:   keyer{hash: h},
	}
}

func (m *Memory) Put(ctx context.Context, ch entity.Challenge, ttl time.Duration) error {
	if err := validatePut(ch, ttl); err != nil {
		return err
	}
	key, err := m.keyer.key(ch.ID)
	if err != nil {
		return unavailable(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = newRecord(ch, m.clock.Now().Add(ttl))
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*entity.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, rec, err := m.live(id)
	if err != nil {
		return nil, err
	}
	return rec.challenge(), nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	key, err := m.keyer.key(id)
	if err != nil {
		return unavailable(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *Memory) CompareAndIncrementAttempt(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, rec, err := m.live(id)
	if err != nil {
		return 0, err
	}

	n, changed := rec.increment()
	if changed {
		m.records[key] = rec
	}
	return n, nil
}

func (m *Memory) MarkConsumed(ctx context.Context, id string, retention time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, rec, err := m.live(id)
	if err != nil {
		return false, err
	}

	flipped, remove := rec.consume(m.clock.Now(), retention)
	switch {
	case remove:
		delete(m.records, key)
	case flipped:
		m.records[key] = rec
	}
	return flipped, nil
}

// live returns the record for id, evicting it first when its lifetime is
// over. The caller must hold m.mu.
func (m *Memory) live(id string) (string, record, error) {
	key, err := m.keyer.key(id)
	if err != nil {
		return "", record{}, unavailable(err)
	}

	rec, ok := m.records[key]
	if !ok {
		return key, record{}, entity.ErrChallengeNotFound
	}
	if rec.evicted(m.clock.Now()) {
		delete(m.records, key)
		return key, record{}, entity.ErrChallengeNotFound
	}
	return key, rec, nil
}
