// Package notify provides change notification for definition documents.
//
// The notify package implements an observer pattern that lets a UI layer
// or any other subscriber react when groups and parameters are added or
// removed, or when the document's dirty state flips. Delivery is
// synchronous and happens on the goroutine that performed the mutation.
package notify

import "sync"

// Kind represents the type of document change.
type Kind int

const (
	// GroupAdded indicates a group was appended.
	GroupAdded Kind = iota

	// GroupRemoved indicates a group was removed.
	GroupRemoved

	// GroupRenamed indicates a group's name changed.
	GroupRenamed

	// ParameterAdded indicates a parameter was appended.
	ParameterAdded

	// ParameterRemoved indicates a parameter was removed.
	ParameterRemoved

	// ParameterMoved indicates a parameter now belongs to another group.
	ParameterMoved

	// DirtyChanged indicates the document became dirty or clean.
	DirtyChanged
)

// String returns the change kind name.
func (k Kind) String() string {
	switch k {
	case GroupAdded:
		return "group-added"
	case GroupRemoved:
		return "group-removed"
	case GroupRenamed:
		return "group-renamed"
	case ParameterAdded:
		return "parameter-added"
	case ParameterRemoved:
		return "parameter-removed"
	case ParameterMoved:
		return "parameter-moved"
	case DirtyChanged:
		return "dirty-changed"
	default:
		return "unknown"
	}
}

// Change represents a document change event.
type Change struct {
	// Kind is the type of change.
	Kind Kind

	// Index is the position of the affected entity in its sequence
	// (-1 for DirtyChanged).
	Index int

	// Value is the affected group or parameter, as stored after the change
	// (or as it was before removal). Nil for DirtyChanged.
	Value any

	// Dirty is the document's dirty state after the change.
	Dirty bool
}

// Observer is called when document changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type entry struct {
	id       uint64
	kinds    map[Kind]bool // nil means every kind
	observer Observer
}

// Notifier manages document change subscriptions.
// Observers are called in subscription order.
type Notifier struct {
	mu      sync.RWMutex
	entries []entry
	nextID  uint64
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.subscribe(nil, observer)
}

// SubscribeKind registers an observer for the given change kinds only.
func (n *Notifier) SubscribeKind(observer Observer, kinds ...Kind) *Subscription {
	set := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return n.subscribe(set, observer)
}

func (n *Notifier) subscribe(kinds map[Kind]bool, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.entries = append(n.entries, entry{id: id, kinds: kinds, observer: observer})

	return &Subscription{id: id, notifier: n}
}

// Notify sends a change notification to all matching observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	var observers []Observer
	for _, e := range n.entries {
		if e.kinds == nil || e.kinds[change.Kind] {
			observers = append(observers, e.observer)
		}
	}
	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(change)
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.entries)
}

// unsubscribe removes an observer by ID.
func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, e := range n.entries {
		if e.id == id {
			n.entries = append(n.entries[:i], n.entries[i+1:]...)
			return
		}
	}
}
