package auth

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the credential when its file changes or its token
// expires, and reports every change to onChange.
type Watcher struct {
	path     string
	onChange func(Credential)
	logger   *zap.Logger
	now      func() time.Time

	current Credential
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher creates a watcher for the credential file at path.
func NewWatcher(path string, onChange func(Credential), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{path: path, onChange: onChange, logger: logger, now: time.Now}
}

// Start loads the current credential, reports it, and begins watching the
// credential's directory.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.reload(true)

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx, fw)
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.done)
	defer func() { _ = fw.Close() }()

	expiry := time.NewTimer(time.Hour)
	w.armExpiry(expiry)
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(w.path) {
				continue
			}
			if evt.Has(fsnotify.Create) || evt.Has(fsnotify.Write) || evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
				w.reload(false)
				w.armExpiry(expiry)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("credential watcher error", zap.Error(err))
		case <-expiry.C:
			w.reload(false)
			w.armExpiry(expiry)
		}
	}
}

func (w *Watcher) reload(initial bool) {
	cred, err := Load(w.path, w.now())
	if err != nil {
		w.logger.Warn("failed to load credential", zap.Error(err))
		return
	}
	if !initial && cred.Token == w.current.Token {
		return
	}
	w.current = cred
	w.logger.Info("credential changed",
		zap.Bool("present", cred.Present()),
		zap.String("user_id", cred.UserID),
	)
	if w.onChange != nil {
		w.onChange(cred)
	}
}

func (w *Watcher) armExpiry(t *time.Timer) {
	t.Stop()
	if w.current.ExpiresAt.IsZero() {
		return
	}
	d := w.current.ExpiresAt.Sub(w.now())
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}
