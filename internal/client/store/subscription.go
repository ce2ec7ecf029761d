package store

import (
	"sync"

	"github.com/dmitrijs2005/clipvault/internal/client/models"
)

// Subscription delivers clip list snapshots. Only the newest undelivered
// snapshot is kept, so a slow reader skips intermediate states but always
// ends up with the latest one.
type Subscription struct {
	ch     chan []models.Clip
	done   chan struct{}
	once   sync.Once
	cancel func(*Subscription)
}

func newSubscription(cancel func(*Subscription)) *Subscription {
	return &Subscription{
		ch:     make(chan []models.Clip, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Updates returns the snapshot channel. It is closed when the subscription
// ends.
func (s *Subscription) Updates() <-chan []models.Clip {
	return s.ch
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.cancel(s)
}

// offer replaces any pending snapshot with snap. Callers must hold the
// store's publication lock, which makes it the only sender.
func (s *Subscription) offer(snap []models.Clip) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

// shutdown closes the channels. Callers must hold the publication lock.
func (s *Subscription) shutdown() {
	s.once.Do(func() {
		close(s.done)
		close(s.ch)
	})
}
