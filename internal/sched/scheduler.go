// Package sched provides the delayed re-invocation primitive the poller is
// built on. Every pending poll holds a Handle so it can be cancelled when its
// task is deleted, and tests swap in the Manual scheduler to fire timers
// deterministically.
package sched

import (
	"sort"
	"sync"
	"time"
)

// Handle identifies one scheduled invocation.
type Handle interface {
	// Stop cancels the invocation and reports whether it was still pending.
	Stop() bool
}

// Scheduler schedules a function to run once after a delay.
type Scheduler interface {
	After(d time.Duration, fn func()) Handle
}

// Timer is the production scheduler over time.AfterFunc.
type Timer struct{}

func NewTimer() *Timer { return &Timer{} }

func (t *Timer) After(d time.Duration, fn func()) Handle {
	return timerHandle{timer: time.AfterFunc(d, fn)}
}

type timerHandle struct {
	timer *time.Timer
}

func (h timerHandle) Stop() bool { return h.timer.Stop() }

// Manual is a scheduler for tests: nothing fires until the test asks for it.
type Manual struct {
	mu      sync.Mutex
	seq     int
	pending map[int]*manualEntry
}

type manualEntry struct {
	seq   int
	delay time.Duration
	fn    func()
}

func NewManual() *Manual {
	return &Manual{pending: make(map[int]*manualEntry)}
}

func (m *Manual) After(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e := &manualEntry{seq: m.seq, delay: d, fn: fn}
	m.pending[e.seq] = e
	return &manualHandle{m: m, seq: e.seq}
}

// Pending reports how many invocations are waiting.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Delays lists the delays of pending invocations in schedule order.
func (m *Manual) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.sortedLocked()
	out := make([]time.Duration, len(entries))
	for i, e := range entries {
		out[i] = e.delay
	}
	return out
}

// FireNext runs the oldest pending invocation. It reports false when nothing
// is pending.
func (m *Manual) FireNext() bool {
	m.mu.Lock()
	entries := m.sortedLocked()
	if len(entries) == 0 {
		m.mu.Unlock()
		return false
	}
	e := entries[0]
	delete(m.pending, e.seq)
	m.mu.Unlock()
	e.fn()
	return true
}

// Drain fires pending invocations until none remain, returning how many ran.
// Invocations scheduled while draining run too.
func (m *Manual) Drain(max int) int {
	fired := 0
	for fired < max && m.FireNext() {
		fired++
	}
	return fired
}

func (m *Manual) sortedLocked() []*manualEntry {
	entries := make([]*manualEntry, 0, len(m.pending))
	for _, e := range m.pending {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	return entries
}

type manualHandle struct {
	m   *Manual
	seq int
}

func (h *manualHandle) Stop() bool {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if _, ok := h.m.pending[h.seq]; !ok {
		return false
	}
	delete(h.m.pending, h.seq)
	return true
}

var (
	_ Scheduler = (*Timer)(nil)
	_ Scheduler = (*Manual)(nil)
)
