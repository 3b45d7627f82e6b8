// Copyright 2025 James Ross
package backlog

import "container/list"

// Backlog is the ordered sequence of task ids awaiting assignment. It
// supports O(1) head insert (retries), O(1) tail append (fresh work), and
// O(1) head remove (assignment), with duplicate ids rejected. This is a
// small, domain-specific structure (an ordered set with both-ended
// insertion) that no third-party library in the example pack models
// directly; container/list plus a side index is the idiomatic stdlib fit.
type Backlog struct {
	order *list.List
	index map[string]*list.Element
}

// New returns an empty Backlog.
func New() *Backlog {
	return &Backlog{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// PushTail appends a fresh task id to the tail. Reports false if the id is
// already present (a duplicate insert is a logic error per the backlog's
// no-duplicates invariant).
func (b *Backlog) PushTail(id string) bool {
	if _, exists := b.index[id]; exists {
		return false
	}
	b.index[id] = b.order.PushBack(id)
	return true
}

// PushHead inserts a retried task id at the head, ahead of fresh work.
func (b *Backlog) PushHead(id string) bool {
	if _, exists := b.index[id]; exists {
		return false
	}
	b.index[id] = b.order.PushFront(id)
	return true
}

// PopHead removes and returns the head id, or ("", false) if empty.
func (b *Backlog) PopHead() (string, bool) {
	front := b.order.Front()
	if front == nil {
		return "", false
	}
	id := front.Value.(string)
	b.order.Remove(front)
	delete(b.index, id)
	return id, true
}

// Contains reports whether id is currently queued.
func (b *Backlog) Contains(id string) bool {
	_, ok := b.index[id]
	return ok
}

// Len returns the current backlog depth.
func (b *Backlog) Len() int {
	return b.order.Len()
}
