package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/logger"
	"github.com/lhtc/classpoint/pkg/retry"
)

// KV is the minimal storage contract shared by every backend.
type KV interface {
	// Get returns the values of the requested keys. Missing keys are simply
	// absent from the result.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)

	// Put writes all entries atomically.
	Put(ctx context.Context, entries map[string][]byte) error

	// Close releases the backend.
	Close() error
}

// Store adapts a KV backend into a classroom.Repository.
type Store struct {
	kv      KV
	log     *logger.Logger
	retrier *retry.Retrier
	timeout time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *logger.Logger) StoreOption {
	return func(s *Store) { s.log = l.With(logger.Component("snapshot")) }
}

// WithTimeout bounds every Load and Save.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.timeout = d }
}

// WithRetrier overrides the retry policy for backend calls.
func WithRetrier(r *retry.Retrier) StoreOption {
	return func(s *Store) { s.retrier = r }
}

// NewStore creates a Store over kv.
func NewStore(kv KV, opts ...StoreOption) *Store {
	s := &Store{
		kv:      kv,
		log:     logger.Nop(),
		retrier: retry.SnapshotRetrier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ classroom.Repository = (*Store)(nil)

// Load implements classroom.Repository. A corrupt snapshot returns the
// state decoded from the readable keys together with the error.
func (s *Store) Load(ctx context.Context) (classroom.State, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var entries map[string][]byte
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		var getErr error
		entries, getErr = s.kv.Get(ctx, Keys...)
		return getErr
	})
	if err != nil {
		return classroom.State{}, fmt.Errorf("snapshot: load: %w", err)
	}

	state, err := Decode(entries)
	if err != nil {
		s.log.Error("snapshot is corrupt", logger.Err(err))
		return state, err
	}

	s.log.Debug("snapshot loaded",
		logger.Int("students", len(state.Students)),
		logger.Int("classes", len(state.Classes)),
		logger.Latency(time.Since(start)),
	)
	return state, nil
}

// Save implements classroom.Repository.
func (s *Store) Save(ctx context.Context, state classroom.State) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entries, err := Encode(state)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.kv.Put(ctx, entries)
	}); err != nil {
		return fmt.Errorf("snapshot: save: %w", err)
	}

	s.log.Debug("snapshot saved",
		logger.Int("students", len(state.Students)),
		logger.Latency(time.Since(start)),
	)
	return nil
}

// Dump returns the raw stored entries, for backups.
func (s *Store) Dump(ctx context.Context) (map[string][]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.kv.Get(ctx, Keys...)
}

// Restore validates raw entries and writes them as the new snapshot.
func (s *Store) Restore(ctx context.Context, entries map[string][]byte) (classroom.State, error) {
	state, err := Decode(entries)
	if err != nil {
		return classroom.State{}, err
	}
	if err := s.Save(ctx, state); err != nil {
		return classroom.State{}, err
	}
	return state, nil
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ════════════════════════════════════════════════════════════════════════════
// BACKUPS
// Raw entries are copied under "lhtc_backup/<id>/<key>" before a damaged
// snapshot is overwritten. KeyBackups holds the ids, oldest first.
// ════════════════════════════════════════════════════════════════════════════

// KeyBackups lists the backup ids as a JSON array.
const KeyBackups = "lhtc_backups"

const backupIDLayout = "20060102T150405.000Z"

func backupKey(id, key string) string {
	return "lhtc_backup/" + id + "/" + key
}

// Backup copies the raw stored entries, readable or not, into a new
// backup and returns its id.
func (s *Store) Backup(ctx context.Context, at time.Time) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := s.kv.Get(ctx, append([]string{KeyBackups}, Keys...)...)
	if err != nil {
		return "", fmt.Errorf("snapshot: backup: %w", err)
	}
	var ids []string
	if list := raw[KeyBackups]; len(list) > 0 {
		if err := json.Unmarshal(list, &ids); err != nil {
			return "", corrupt(KeyBackups, err)
		}
	}

	id := at.UTC().Format(backupIDLayout)
	entries := make(map[string][]byte, len(Keys)+1)
	for _, key := range Keys {
		if v, ok := raw[key]; ok {
			entries[backupKey(id, key)] = v
		}
	}
	if !slices.Contains(ids, id) {
		ids = append(ids, id)
	}
	list, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("snapshot: backup: %w", err)
	}
	entries[KeyBackups] = list

	if err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.kv.Put(ctx, entries)
	}); err != nil {
		return "", fmt.Errorf("snapshot: backup: %w", err)
	}
	s.log.Info("snapshot backed up", logger.String("backup_id", id), logger.Int("keys", len(entries)-1))
	return id, nil
}

// Backups returns the backup ids, oldest first.
func (s *Store) Backups(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := s.kv.Get(ctx, KeyBackups)
	if err != nil {
		return nil, fmt.Errorf("snapshot: backups: %w", err)
	}
	var ids []string
	if list := raw[KeyBackups]; len(list) > 0 {
		if err := json.Unmarshal(list, &ids); err != nil {
			return nil, corrupt(KeyBackups, err)
		}
	}
	return ids, nil
}

// LoadBackup returns the raw entries of a backup, keyed like Dump. Pass
// them to Restore to make the backup current again.
func (s *Store) LoadBackup(ctx context.Context, id string) (map[string][]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	keys := make([]string, len(Keys))
	for i, key := range Keys {
		keys[i] = backupKey(id, key)
	}
	raw, err := s.kv.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load backup: %w", err)
	}
	if len(raw) == 0 {
		return nil, shared.NotFound("snapshot", "LoadBackup", "backup", id)
	}
	out := make(map[string][]byte, len(raw))
	for i, key := range Keys {
		if v, ok := raw[keys[i]]; ok {
			out[key] = v
		}
	}
	return out, nil
}
