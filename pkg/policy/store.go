package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store holds the active policy snapshot behind an atomic pointer. Activation
// is a copy-on-write swap: a snapshot handed to an in-flight trace is never
// edited, so later swaps are invisible to traces already evaluating.
type Store struct {
	active atomic.Pointer[Snapshot]
	logger *slog.Logger

	mu      sync.Mutex
	path    string
	onSwap  []func(old, new *Snapshot)
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewStore creates an empty store. Activate or LoadAndActivate installs the
// first snapshot.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger.With("component", "policy.store"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Active returns the currently active snapshot, or nil before first
// activation.
func (s *Store) Active() *Snapshot {
	return s.active.Load()
}

// Activate atomically swaps the active snapshot and notifies swap observers.
func (s *Store) Activate(snap *Snapshot) {
	if snap == nil {
		return
	}
	old := s.active.Swap(snap)
	if old != nil && old.Equal(snap) {
		s.logger.Debug("policy snapshot unchanged after swap", "hash", snap.Hash())
	} else {
		s.logger.Info("policy snapshot activated",
			"version", snap.Version(),
			"hash", snap.Hash(),
			"rules", len(snap.rules),
		)
	}

	s.mu.Lock()
	observers := append([]func(old, new *Snapshot){}, s.onSwap...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(old, snap)
	}
}

// LoadAndActivate loads a policy file and activates the resulting snapshot.
// On load failure the prior snapshot remains active and the error is
// returned.
func (s *Store) LoadAndActivate(path string) (*Snapshot, error) {
	snap, err := Load(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.path = path
	s.mu.Unlock()
	s.Activate(snap)
	return snap, nil
}

// OnSwap registers an observer called after every snapshot swap. Observers
// must not block.
func (s *Store) OnSwap(fn func(old, new *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSwap = append(s.onSwap, fn)
}

// Watch starts watching the loaded policy file and hot-reloads it on change,
// debounced to absorb editor write bursts. A reload that fails validation is
// logged and discarded; the active snapshot stays in force. Watch returns
// immediately; Close stops the watcher.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("policy watcher already running")
	}
	if s.path == "" {
		return fmt.Errorf("no policy file loaded; call LoadAndActivate first")
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	// Watch the directory rather than the file: editors replace files via
	// rename, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch policy directory: %w", err)
	}

	s.watcher = watcher
	s.running = true
	path := s.path

	go func() {
		defer close(s.doneCh)

		var timer *time.Timer
		var timerCh <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
					timerCh = timer.C
				} else {
					timer.Reset(debounce)
				}

			case <-timerCh:
				timer = nil
				timerCh = nil
				if _, err := s.LoadAndActivate(path); err != nil {
					s.logger.Error("policy reload failed, keeping active snapshot",
						"path", path,
						"error", err,
					)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("policy watcher error", "error", err)
			}
		}
	}()

	s.logger.Info("policy watcher started", "path", path, "debounce", debounce)
	return nil
}

// Close stops the watcher, if running.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	close(s.stopCh)
	err := s.watcher.Close()
	<-s.doneCh
	return err
}
