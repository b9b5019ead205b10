package connectivity

import (
	"sort"
	"sync"
)

// Signal reports whether the client is online and notifies on changes
type Signal interface {
	Online() bool
	// Subscribe registers fn for online/offline transitions. The returned func unsubscribes.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// notifier keeps the subscriber list shared by Static and Probe
type notifier struct {
	lock   sync.Mutex
	online bool
	next   int
	subs   map[int]func(bool)
}

func newNotifier(online bool) notifier {
	return notifier{
		online: online,
		subs:   map[int]func(bool){},
	}
}

func (n *notifier) Online() bool {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.online
}

func (n *notifier) Subscribe(fn func(online bool)) func() {
	n.lock.Lock()
	defer n.lock.Unlock()
	id := n.next
	n.next++
	n.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.lock.Lock()
			defer n.lock.Unlock()
			delete(n.subs, id)
		})
	}
}

// set records online and notifies subscribers if it changed.
// Subscribers are called outside the lock, in registration order.
func (n *notifier) set(online bool) {
	n.lock.Lock()
	if n.online == online {
		n.lock.Unlock()
		return
	}
	n.online = online
	ids := make([]int, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(bool), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, n.subs[id])
	}
	n.lock.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

// Static a Signal that only changes when told to
type Static struct {
	notifier
}

// NewStatic returns a Static signal starting at online
func NewStatic(online bool) *Static {
	return &Static{
		notifier: newNotifier(online),
	}
}

// Set changes the connectivity state
func (s *Static) Set(online bool) {
	s.set(online)
}
