// Package command contains write operations (CQRS - Commands).
//
// Every command runs through the Workspace, which owns the canonical
// classroom state: a command computes the next state from a copy, the
// Workspace saves the full snapshot and only then makes the new state
// current and publishes the command's events.
package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/logger"
	"github.com/lhtc/classpoint/pkg/validation"
)

// ══════════════════════════════════════════════════════════════════════════════
// WORKSPACE
// ══════════════════════════════════════════════════════════════════════════════

// Observer receives snapshot timings and roster sizes, e.g. for Prometheus.
type Observer interface {
	ObserveSnapshot(operation string, d time.Duration, err error)
	SetRoster(students, classes int)
}

// Backuper copies the raw stored snapshot aside before it is overwritten.
// snapshot.Store implements it.
type Backuper interface {
	Backup(ctx context.Context, at time.Time) (string, error)
}

// MutateFunc computes the next state from a private copy of the current
// one and reports the events the change produced.
type MutateFunc func(state classroom.State) (classroom.State, []shared.Event, error)

// Workspace serializes mutations of the classroom state.
type Workspace struct {
	mu        sync.Mutex
	repo      classroom.Repository
	publisher shared.EventPublisher
	observer  Observer
	log       *logger.Logger
	now       func() time.Time

	state  classroom.State
	loaded bool
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithPublisher publishes mutation events after a successful save.
func WithPublisher(p shared.EventPublisher) WorkspaceOption {
	return func(w *Workspace) { w.publisher = p }
}

// WithObserver reports snapshot timings.
func WithObserver(o Observer) WorkspaceOption {
	return func(w *Workspace) { w.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) WorkspaceOption {
	return func(w *Workspace) { w.log = l }
}

// NewWorkspace creates a workspace over repo. The state is loaded lazily on
// first use.
func NewWorkspace(repo classroom.Repository, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{repo: repo, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With(logger.Component("workspace"))
	return w
}

// WithClock sets the clock used to name backups.
func WithClock(now func() time.Time) WorkspaceOption {
	return func(w *Workspace) { w.now = now }
}

// Load (re)reads the stored snapshot. A corrupt snapshot is reported with
// an error matching shared.ErrCorruptSnapshot and nothing is loaded, so no
// later Mutate can overwrite it; see Recover.
func (w *Workspace) Load(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.load(ctx)
}

func (w *Workspace) load(ctx context.Context) error {
	start := time.Now()
	state, err := w.repo.Load(ctx)
	w.observeSnapshot("load", time.Since(start), err)
	if errors.Is(err, shared.ErrCorruptSnapshot) {
		w.loaded = false
		w.log.Error("classroom snapshot is corrupt, recover it before making changes", logger.Err(err))
		return shared.WrapError("workspace", "Load", shared.ErrCorruptSnapshot, "stored classroom snapshot is corrupt", err)
	}
	if err != nil {
		return shared.WrapError("workspace", "Load", shared.ErrServiceUnavailable, "cannot load classroom snapshot", err)
	}
	w.state = state
	w.loaded = true
	w.observeRoster()
	w.log.Debug("classroom loaded",
		logger.Int("students", len(state.Students)),
		logger.Int("classes", len(state.Classes)),
	)
	return nil
}

// Snapshot returns a deep copy of the current state.
func (w *Workspace) Snapshot(ctx context.Context) (classroom.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		if err := w.load(ctx); err != nil {
			return classroom.State{}, err
		}
	}
	return w.state.Clone(), nil
}

// Mutate applies fn and persists the result. On any error, including a
// failed save, the current state is left unchanged. Events are published
// after the lock is released.
func (w *Workspace) Mutate(ctx context.Context, op string, fn MutateFunc) (classroom.State, error) {
	w.mu.Lock()
	if !w.loaded {
		if err := w.load(ctx); err != nil {
			w.mu.Unlock()
			return classroom.State{}, err
		}
	}

	next, events, err := fn(w.state.Clone())
	if err != nil {
		w.mu.Unlock()
		return classroom.State{}, err
	}

	start := time.Now()
	err = w.repo.Save(ctx, next)
	w.observeSnapshot("save", time.Since(start), err)
	if err != nil {
		w.mu.Unlock()
		w.log.Error("snapshot save failed", logger.Operation(op), logger.Err(err))
		return classroom.State{}, shared.WrapError("workspace", op, shared.ErrServiceUnavailable, "cannot save classroom snapshot", err)
	}

	w.state = next
	w.observeRoster()
	result := next.Clone()
	w.mu.Unlock()

	w.publish(op, events)
	return result, nil
}

// RecoverResult reports what Recover did.
type RecoverResult struct {
	// Recovered is false when the stored snapshot was readable and nothing
	// was written.
	Recovered bool
	BackupID  string
	Problems  []string
	State     classroom.State
}

// Recover repairs a corrupt snapshot. The raw entries are backed up first;
// then the keys that could still be read are saved together with defaults
// for the unreadable ones. Without a Backuper nothing is overwritten.
func (w *Workspace) Recover(ctx context.Context) (*RecoverResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, err := w.repo.Load(ctx)
	if err == nil {
		w.state, w.loaded = state, true
		w.observeRoster()
		return &RecoverResult{State: state.Clone()}, nil
	}
	if !errors.Is(err, shared.ErrCorruptSnapshot) {
		return nil, shared.WrapError("workspace", "Recover", shared.ErrServiceUnavailable, "cannot load classroom snapshot", err)
	}
	problems := strings.Split(err.Error(), "\n")

	b, ok := w.repo.(Backuper)
	if !ok {
		return nil, shared.NewDomainError("workspace", "Recover", shared.ErrCorruptSnapshot,
			"storage cannot keep a backup, refusing to overwrite the corrupt snapshot")
	}
	id, err := b.Backup(ctx, w.now())
	if err != nil {
		return nil, shared.WrapError("workspace", "Recover", shared.ErrServiceUnavailable, "cannot back up classroom snapshot", err)
	}

	start := time.Now()
	err = w.repo.Save(ctx, state)
	w.observeSnapshot("save", time.Since(start), err)
	if err != nil {
		return nil, shared.WrapError("workspace", "Recover", shared.ErrServiceUnavailable, "cannot save classroom snapshot", err)
	}

	w.state, w.loaded = state, true
	w.observeRoster()
	w.log.Warn("classroom snapshot recovered",
		logger.String("backup_id", id),
		logger.Any("problems", problems),
		logger.Int("students", len(state.Students)),
		logger.Int("classes", len(state.Classes)),
	)
	return &RecoverResult{Recovered: true, BackupID: id, Problems: problems, State: state.Clone()}, nil
}

func (w *Workspace) publish(op string, events []shared.Event) {
	if w.publisher == nil {
		return
	}
	for _, e := range events {
		if err := w.publisher.Publish(e); err != nil {
			w.log.Warn("event publish failed",
				logger.Operation(op),
				logger.String("event_type", string(e.EventType())),
				logger.Err(err),
			)
		}
	}
}

func (w *Workspace) observeSnapshot(op string, d time.Duration, err error) {
	if w.observer != nil {
		w.observer.ObserveSnapshot(op, d, err)
	}
}

func (w *Workspace) observeRoster() {
	if w.observer != nil {
		w.observer.SetRoster(len(w.state.Students), len(w.state.Classes))
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers shared by the handlers
// ──────────────────────────────────────────────────────────────────────────────

// validate checks a command's struct tags.
func validate(op string, cmd interface{}) error {
	if err := validation.Struct(cmd); err != nil {
		return shared.WrapError("command", op, shared.ErrValidation, "invalid command", err)
	}
	return nil
}

// resolveClass returns classID, or the active class when it is empty.
func resolveClass(state classroom.State, classID string) (classroom.ClassGroup, error) {
	if classID == "" {
		return state.ActiveClass(), nil
	}
	return state.FindClass(classID)
}
