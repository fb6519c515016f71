package typedefs

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-set/v2"
	"golang.org/x/exp/slices"
)

// DefaultDebounce coalesces the bursts of events editors produce when
// saving a file.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to a set of files using OS-native notifications.
// Directories are watched rather than the files themselves so that files
// replaced by rename are still seen.
type Watcher struct {
	w        *fsnotify.Watcher
	files    *set.Set[string]
	debounce time.Duration

	changes chan []string
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

// NewWatcher watches paths. Each value received from Changes lists the
// files that changed during one debounce interval.
func NewWatcher(paths []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &Watcher{
		w:        w,
		files:    set.New[string](len(paths)),
		debounce: debounce,
		changes:  make(chan []string, 16),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}

	dirs := set.New[string](len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		fw.files.Insert(abs)
		dirs.Insert(filepath.Dir(abs))
	}
	for _, dir := range dirs.Slice() {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	go fw.loop()
	return fw, nil
}

func (fw *Watcher) loop() {
	defer close(fw.changes)

	pending := set.New[string](0)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-fw.done:
			return
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || !fw.files.Contains(name) {
				continue
			}
			pending.Insert(name)
			if timer == nil {
				timer = time.NewTimer(fw.debounce)
			} else {
				timer.Reset(fw.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			changed := pending.Slice()
			slices.Sort(changed)
			pending = set.New[string](0)
			select {
			case fw.changes <- changed:
			case <-fw.done:
				return
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			select {
			case fw.errs <- err:
			default:
			}
		}
	}
}

// Changes returns the channel of changed file batches. It is closed when
// the watcher stops.
func (fw *Watcher) Changes() <-chan []string { return fw.changes }

// Errors returns watcher errors. Errors are dropped while one is pending.
func (fw *Watcher) Errors() <-chan error { return fw.errs }

// Close stops the watcher.
func (fw *Watcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.done)
		err = fw.w.Close()
	})
	return err
}

// Watch calls onChange with every batch of changed files until ctx is
// done or onChange returns an error.
func Watch(ctx context.Context, paths []string, debounce time.Duration, onChange func(changed []string) error) error {
	fw, err := NewWatcher(paths, debounce)
	if err != nil {
		return err
	}
	defer fw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed, ok := <-fw.Changes():
			if !ok {
				return nil
			}
			if err := onChange(changed); err != nil {
				return err
			}
		case err := <-fw.Errors():
			return err
		}
	}
}
