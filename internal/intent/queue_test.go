package intent

import (
	"errors"
	"testing"
)

type surface struct {
	toggles int
	opens   int
	openErr error
}

func (s *surface) toggle() { s.toggles++ }

func (s *surface) open() error {
	s.opens++
	return s.openErr
}

func TestRequestBeforeReadyReplaysOnce(t *testing.T) {
	tests := []struct {
		name  string
		ready func(q *Queue, s *surface)
	}{
		{"mount then auth", func(q *Queue, s *surface) {
			q.Mount(s.toggle, s.open)
			q.SetAuthenticated(true)
		}},
		{"auth then mount", func(q *Queue, s *surface) {
			q.SetAuthenticated(true)
			q.Mount(s.toggle, s.open)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(nil)
			s := &surface{}

			q.RequestOpen()
			q.RequestOpen()
			if q.State() != AwaitingReady {
				t.Fatalf("state = %s, want AWAITING_READY", q.State())
			}

			tt.ready(q, s)
			q.SetAuthenticated(true)

			if s.opens != 1 {
				t.Errorf("open ran %d times, want 1", s.opens)
			}
			if s.toggles != 0 {
				t.Errorf("toggle ran %d times, want 0", s.toggles)
			}
			if q.Pending() {
				t.Error("request still pending")
			}
			if q.State() != Consumed {
				t.Errorf("state = %s, want CONSUMED", q.State())
			}
		})
	}
}

func TestRequestWhenReadyToggles(t *testing.T) {
	q := New(nil)
	s := &surface{}
	q.Mount(s.toggle, s.open)
	q.SetAuthenticated(true)
	if q.State() != Ready {
		t.Fatalf("state = %s, want READY", q.State())
	}

	q.RequestOpen()
	q.RequestOpen()

	if s.toggles != 2 || s.opens != 0 {
		t.Errorf("toggles = %d, opens = %d", s.toggles, s.opens)
	}
}

func TestFailedOpenStillClears(t *testing.T) {
	q := New(nil)
	s := &surface{openErr: errors.New("render failed")}

	q.RequestOpen()
	q.Mount(s.toggle, s.open)
	q.SetAuthenticated(true)
	q.Unmount()
	q.Mount(s.toggle, s.open)

	if s.opens != 1 {
		t.Errorf("open ran %d times, want 1", s.opens)
	}
	if q.Pending() {
		t.Error("failed open left the request pending")
	}
}

func TestLosingAuthHoldsNextRequest(t *testing.T) {
	q := New(nil)
	s := &surface{}
	q.Mount(s.toggle, s.open)
	q.SetAuthenticated(true)

	q.SetAuthenticated(false)
	q.RequestOpen()
	if s.toggles != 0 {
		t.Fatal("toggle called while unauthenticated")
	}
	if !q.Pending() {
		t.Fatal("request dropped while unauthenticated")
	}

	q.SetAuthenticated(true)
	if s.opens != 1 {
		t.Errorf("open ran %d times, want 1", s.opens)
	}
}

func TestNoRequestNoOpen(t *testing.T) {
	q := New(nil)
	s := &surface{}
	q.Mount(s.toggle, s.open)
	q.SetAuthenticated(true)
	q.Unmount()
	q.Mount(s.toggle, s.open)

	if s.opens != 0 || s.toggles != 0 {
		t.Errorf("opens = %d, toggles = %d", s.opens, s.toggles)
	}
}
