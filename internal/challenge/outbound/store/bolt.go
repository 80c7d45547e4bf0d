package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/pkg/clock"
	"github.com/shandysiswandi/gocustody/internal/pkg/hash"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"go.etcd.io/bbolt"
)

var challengeBucket = []byte("challenges")

// ErrMissingPath is returned when no database path is configured.
var ErrMissingPath = errors.New("store: bolt path is missing")

// BoltConfig configures the bbolt backend.
type BoltConfig struct {
	Path string
	// SweepInterval is how often evicted records are removed from disk.
	// Reads never return an evicted record regardless of the sweep.
	SweepInterval time.Duration
}

// Bolt keeps challenges in an embedded bbolt file. bbolt allows a single
// writer at a time, so every mutation inside one Update transaction is
// atomic. It serves single-node deployments only.
type Bolt struct {
	db     *bbolt.DB
	clock  clock.Clocker
	keyer  keyer
	tracer tracer

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewBolt opens (or creates) the database file and starts the sweeper.
func NewBolt(cfg BoltConfig, clk clock.Clocker, h hash.Hash, ins instrument.Instrumentation) (*Bolt, error) {
	if cfg.Path == "" {
		return nil, ErrMissingPath
	}

	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt %s: %w", cfg.Path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(challengeBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}

	b := &Bolt{
		db:     db,
		clock:  clk,
		keyer:  keyer{hash: h},
		tracer: tracer{ins: ins},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	go b.sweepLoop(interval)

	return b, nil
}

// Close stops the sweeper and closes the database.
func (b *Bolt) Close() error {
	b.once.Do(func() { close(b.stop) })
	<-b.done
	return b.db.Close()
}

func (b *Bolt) Put(ctx context.Context, ch entity.Challenge, ttl time.Duration) (err error) {
	_, span := b.tracer.startSpan(ctx, "Put")
	defer func() { b.tracer.endSpan(span, err) }()

	if err = validatePut(ch, ttl); err != nil {
		return err
	}

	key, err := b.keyer.key(ch.ID)
	if err != nil {
		return unavailable(err)
	}

	data, err := json.Marshal(newRecord(ch, b.clock.Now().Add(ttl)))
	if err != nil {
		return unavailable(err)
	}

	return unavailable(b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(challengeBucket).Put([]byte(key), data)
	}))
}

func (b *Bolt) Get(ctx context.Context, id string) (_ *entity.Challenge, err error) {
	_, span := b.tracer.startSpan(ctx, "Get")
	defer func() { b.tracer.endSpan(span, err) }()

	key, err := b.keyer.key(id)
	if err != nil {
		return nil, unavailable(err)
	}

	var rec record
	err = b.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = b.load(tx, key)
		return err
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return rec.challenge(), nil
}

func (b *Bolt) Delete(ctx context.Context, id string) (err error) {
	_, span := b.tracer.startSpan(ctx, "Delete")
	defer func() { b.tracer.endSpan(span, err) }()

	key, err := b.keyer.key(id)
	if err != nil {
		return unavailable(err)
	}

	return unavailable(b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(challengeBucket).Delete([]byte(key))
	}))
}

func (b *Bolt) CompareAndIncrementAttempt(ctx context.Context, id string) (_ int, err error) {
	_, span := b.tracer.startSpan(ctx, "CompareAndIncrementAttempt")
	defer func() { b.tracer.endSpan(span, err) }()

	key, err := b.keyer.key(id)
	if err != nil {
		return 0, unavailable(err)
	}

	var n int
	err = b.db.Update(func(tx *bbolt.Tx) error {
		rec, err := b.load(tx, key)
		if err != nil {
			return err
		}

		var changed bool
		n, changed = rec.increment()
		if !changed {
			return nil
		}
		return b.save(tx, key, rec)
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (b *Bolt) MarkConsumed(ctx context.Context, id string, retention time.Duration) (_ bool, err error) {
	_, span := b.tracer.startSpan(ctx, "MarkConsumed")
	defer func() { b.tracer.endSpan(span, err) }()

	key, err := b.keyer.key(id)
	if err != nil {
		return false, unavailable(err)
	}

	var flipped bool
	err = b.db.Update(func(tx *bbolt.Tx) error {
		rec, err := b.load(tx, key)
		if err != nil {
			return err
		}

		var remove bool
		flipped, remove = rec.consume(b.clock.Now(), retention)
		switch {
		case remove:
			return tx.Bucket(challengeBucket).Delete([]byte(key))
		case flipped:
			return b.save(tx, key, rec)
		default:
			return nil
		}
	})
	if err != nil {
		return false, unavailable(err)
	}
	return flipped, nil
}

func (b *Bolt) load(tx *bbolt.Tx, key string) (record, error) {
	data := tx.Bucket(challengeBucket).Get([]byte(key))
	if data == nil {
		return record{}, entity.ErrChallengeNotFound
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, fmt.Errorf("store: decode %q: %w", key, err)
	}
	if rec.evicted(b.clock.Now()) {
		return record{}, entity.ErrChallengeNotFound
	}
	return rec, nil
}

func (b *Bolt) save(tx *bbolt.Tx, key string, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return tx.Bucket(challengeBucket).Put([]byte(key), data)
}

func (b *Bolt) sweep() (int, error) {
	now := b.clock.Now()
	var removed int

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(challengeBucket)

		var stale [][]byte
		if err := bkt.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				slog.Warn("dropping undecodable challenge record", "error", err)
			} else if !rec.evicted(now) {
				return nil
			}
			stale = append(stale, append([]byte(nil), k...))
			return nil
		}); err != nil {
			return err
		}

		for _, k := range stale {
			if err := bkt.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (b *Bolt) sweepLoop(interval time.Duration) {
	defer close(b.done)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-t.C:
			if n, err := b.sweep(); err != nil {
				slog.Error("failed to sweep bolt challenge store", "error", err)
			} else if n > 0 {
				slog.Debug("swept evicted challenges", "count", n)
			}
		}
	}
}
