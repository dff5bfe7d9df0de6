// Package badger keeps the classroom snapshot in an embedded BadgerDB
// directory. It is the default storage driver for a single-machine install.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/lhtc/classpoint/internal/infrastructure/persistence/snapshot"
	"github.com/lhtc/classpoint/pkg/logger"
)

// Config holds configuration for a BadgerDB instance.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal messages. Nil disables them.
	Logger *logger.Logger

	// GCInterval is how often to run value log garbage collection. 0 disables.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Open opens a BadgerDB instance with the given configuration.
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badger: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	// *logger.Logger satisfies badger.Logger. Badger's info output is noisy,
	// so it is demoted to warnings and above.
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger.WithLevel(logger.LevelWarn).With(logger.Component("badger")))
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	return db, nil
}

// ════════════════════════════════════════════════════════════════════════════
// GARBAGE COLLECTION
// ════════════════════════════════════════════════════════════════════════════

// GCRunner runs periodic value log garbage collection.
type GCRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	log      *logger.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewGCRunner creates a runner. Call Start to begin and Stop to halt it.
func NewGCRunner(db *badger.DB, interval time.Duration, ratio float64, log *logger.Logger) (*GCRunner, error) {
	if db == nil {
		return nil, errors.New("badger: db must not be nil")
	}
	if interval <= 0 {
		return nil, errors.New("badger: gc interval must be positive")
	}
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GCRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins periodic garbage collection.
func (r *GCRunner) Start() {
	go r.run()
}

// Stop halts garbage collection and waits for the goroutine to exit.
func (r *GCRunner) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *GCRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runGC()
		}
	}
}

func (r *GCRunner) runGC() {
	err := r.db.RunValueLogGC(r.ratio)
	switch {
	case err == nil:
		r.log.Debug("badger value log GC completed")
	case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
	default:
		r.log.Warn("badger value log GC failed", logger.Err(err))
	}
}

// ════════════════════════════════════════════════════════════════════════════
// SNAPSHOT KV
// ════════════════════════════════════════════════════════════════════════════

// KV implements snapshot.KV on BadgerDB.
type KV struct {
	db       *badger.DB
	gcRunner *GCRunner
}

var _ snapshot.KV = (*KV)(nil)

// OpenKV opens the database and starts the GC runner when configured.
func OpenKV(cfg Config) (*KV, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	kv := &KV{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		runner, err := NewGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		kv.gcRunner = runner
		runner.Start()
	}
	return kv, nil
}

// Get implements snapshot.KV.
func (k *KV) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	err := k.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[key] = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: get: %w", err)
	}
	return out, nil
}

// Put implements snapshot.KV. All entries are committed in one transaction.
func (k *KV) Put(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := k.db.Update(func(txn *badger.Txn) error {
		for key, val := range entries {
			if err := txn.Set([]byte(key), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger: put: %w", err)
	}
	return nil
}

// Close stops garbage collection and closes the database.
func (k *KV) Close() error {
	if k.gcRunner != nil {
		k.gcRunner.Stop()
	}
	return k.db.Close()
}
