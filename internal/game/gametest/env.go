// internal/game/gametest/env.go

// Package gametest provides a recording game.Env for engine tests.
package gametest

import (
	"io"
	"sync"
	"time"

	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Delivery is one event as seen by one member.
type Delivery struct {
	To    uint16
	Event protocol.Event
}

type timer struct {
	d      time.Duration
	fn     func()
	active bool
}

// Env collects every event instead of writing it to a socket. Timers never
// fire on their own; tests drive them with FireTimers.
type Env struct {
	mu           sync.Mutex
	members      []uint16
	deliveries   []Delivery
	timers       []*timer
	countingDown bool
	records      []game.ActionRecord
	results      []game.MatchResult
	logger       *logrus.Entry
}

func NewEnv(members ...uint16) *Env {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Env{members: members, logger: logrus.NewEntry(l)}
}

func (e *Env) Broadcast(ev protocol.Event, except ...uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, uid := range e.members {
		skip := false
		for _, x := range except {
			if x == uid {
				skip = true
				break
			}
		}
		if !skip {
			e.deliveries = append(e.deliveries, Delivery{To: uid, Event: ev})
		}
	}
}

func (e *Env) Send(uid uint16, ev protocol.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deliveries = append(e.deliveries, Delivery{To: uid, Event: ev})
}

func (e *Env) Members() []uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]uint16, len(e.members))
	copy(out, e.members)
	return out
}

func (e *Env) After(d time.Duration, fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := &timer{d: d, fn: fn, active: true}
	e.timers = append(e.timers, t)
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		t.active = false
	}
}

func (e *Env) CountingDown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countingDown
}

func (e *Env) SetCountingDown(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.countingDown = v
}

func (e *Env) Record(actor uint16, action string, payload map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append(e.records, game.ActionRecord{ActorUID: actor, ActionType: action, ActionPayload: payload})
}

func (e *Env) Finish(result game.MatchResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = append(e.results, result)
}

func (e *Env) Logger() *logrus.Entry { return e.logger }

// AddMember adds a spectator to the member list.
func (e *Env) AddMember(uid uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.members = append(e.members, uid)
}

// RemoveMember drops uid from the member list.
func (e *Env) RemoveMember(uid uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, m := range e.members {
		if m == uid {
			e.members = append(e.members[:i], e.members[i+1:]...)
			return
		}
	}
}

// ActiveTimers reports how many scheduled callbacks are still pending.
func (e *Env) ActiveTimers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, t := range e.timers {
		if t.active {
			n++
		}
	}
	return n
}

// FireTimers runs every pending callback once, in scheduling order.
func (e *Env) FireTimers() {
	e.mu.Lock()
	var due []*timer
	for _, t := range e.timers {
		if t.active {
			t.active = false
			due = append(due, t)
		}
	}
	e.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

// Clear forgets collected deliveries.
func (e *Env) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deliveries = nil
}

// To returns every event delivered to uid, oldest first.
func (e *Env) To(uid uint16) []protocol.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []protocol.Event
	for _, d := range e.deliveries {
		if d.To == uid {
			out = append(out, d.Event)
		}
	}
	return out
}

// TypesTo returns the message types delivered to uid, oldest first.
func (e *Env) TypesTo(uid uint16) []protocol.ServerType {
	var out []protocol.ServerType
	for _, ev := range e.To(uid) {
		out = append(out, ev.Type())
	}
	return out
}

// Last returns the newest event of type t delivered to uid, or nil.
func (e *Env) Last(uid uint16, t protocol.ServerType) protocol.Event {
	events := e.To(uid)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type() == t {
			return events[i]
		}
	}
	return nil
}

// Records returns the historian records collected so far.
func (e *Env) Records() []game.ActionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]game.ActionRecord, len(e.records))
	copy(out, e.records)
	return out
}

// Results returns the match results collected so far.
func (e *Env) Results() []game.MatchResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]game.MatchResult, len(e.results))
	copy(out, e.results)
	return out
}
