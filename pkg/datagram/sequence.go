// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package datagram

// SequenceTracker remembers the highest sequence number accepted on one channel.
// A message older than that is stale and should be dropped. The first message
// is always accepted. Sequence wraparound is not handled.
//
// SequenceTracker is not safe for concurrent use; keep it on the receive path.
type SequenceTracker struct {
	last   uint32
	seen   bool
	stale  uint64
	passed uint64
}

// Accept reports whether a message with this sequence number should be
// processed, and records it as the newest if so
func (t *SequenceTracker) Accept(sequence uint32) bool {
	if t.seen && sequence < t.last {
		t.stale++
		return false
	}
	t.last = sequence
	t.seen = true
	t.passed++
	return true
}

// Last returns the last accepted sequence number and whether any was accepted
func (t *SequenceTracker) Last() (uint32, bool) {
	return t.last, t.seen
}

// Stale returns the number of dropped messages
func (t *SequenceTracker) Stale() uint64 {
	return t.stale
}

// Accepted returns the number of accepted messages
func (t *SequenceTracker) Accepted() uint64 {
	return t.passed
}

// Reset forgets the channel history
func (t *SequenceTracker) Reset() {
	*t = SequenceTracker{}
}

// SequenceFilter tracks sequence numbers per message id
type SequenceFilter struct {
	channels map[uint8]*SequenceTracker
}

// NewSequenceFilter creates an empty filter
func NewSequenceFilter() *SequenceFilter {
	return &SequenceFilter{channels: make(map[uint8]*SequenceTracker)}
}

// Accept applies the channel's tracker for m's id
func (f *SequenceFilter) Accept(m *Message) bool {
	return f.Channel(m.id).Accept(m.sequence)
}

// Channel returns the tracker for a message id, creating it if needed
func (f *SequenceFilter) Channel(id uint8) *SequenceTracker {
	t, ok := f.channels[id]
	if !ok {
		t = &SequenceTracker{}
		f.channels[id] = t
	}
	return t
}
