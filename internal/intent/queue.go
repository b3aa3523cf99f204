package intent

import (
	"sync"

	"go.uber.org/zap"
)

// State of the deferred-open intent.
type State string

const (
	// Uninitialized: the surface is not ready and nothing is pending.
	Uninitialized State = "UNINITIALIZED"
	// AwaitingReady: the surface is not ready and one open request is held.
	AwaitingReady State = "AWAITING_READY"
	// Consumed: a held request was replayed once the surface became ready.
	Consumed State = "CONSUMED"
	// Ready: the surface is mounted and authenticated with nothing pending.
	Ready State = "READY"
)

// Queue holds at most one "open the messaging surface" request made before
// the surface could act on it, and replays it exactly once when the surface
// is both mounted and authenticated.
type Queue struct {
	mu            sync.Mutex
	state         State
	toggle        func()
	open          func() error
	authenticated bool
	logger        *zap.Logger
}

// New creates a queue in the Uninitialized state.
func New(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{state: Uninitialized, logger: logger}
}

// State returns the current state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Pending reports whether a request is being held.
func (q *Queue) Pending() bool {
	return q.State() == AwaitingReady
}

// RequestOpen toggles the surface when it is ready and records the request
// otherwise. Repeated requests while not ready collapse into one.
func (q *Queue) RequestOpen() {
	q.mu.Lock()
	if q.ready() {
		toggle := q.toggle
		q.state = Ready
		q.mu.Unlock()
		toggle()
		return
	}
	q.state = AwaitingReady
	q.mu.Unlock()
	q.logger.Debug("open requested before surface ready, deferring")
}

// Mount registers the surface. toggle handles direct requests once ready;
// open replays a deferred request.
func (q *Queue) Mount(toggle func(), open func() error) {
	q.mu.Lock()
	q.toggle = toggle
	q.open = open
	q.mu.Unlock()
	q.consume()
}

// Unmount makes the queue not ready. A later request is held again.
func (q *Queue) Unmount() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toggle = nil
	q.open = nil
	if q.state != AwaitingReady {
		q.state = Uninitialized
	}
}

// SetAuthenticated records whether the credential is confirmed.
func (q *Queue) SetAuthenticated(ok bool) {
	q.mu.Lock()
	q.authenticated = ok
	if !ok && q.state != AwaitingReady {
		q.state = Uninitialized
	}
	q.mu.Unlock()
	q.consume()
}

// consume replays a held request if the surface just became ready. The
// request is cleared before open runs, so a failing open is not retried.
func (q *Queue) consume() {
	q.mu.Lock()
	if !q.ready() {
		q.mu.Unlock()
		return
	}
	if q.state != AwaitingReady {
		if q.state == Uninitialized {
			q.state = Ready
		}
		q.mu.Unlock()
		return
	}
	q.state = Consumed
	open := q.open
	q.mu.Unlock()

	if err := open(); err != nil {
		q.logger.Warn("deferred open failed", zap.Error(err))
	}
}

func (q *Queue) ready() bool {
	return q.authenticated && q.toggle != nil && q.open != nil
}
