package game

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

// manualClock fires scheduled calls only when advanced.
type manualClock struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
}

type manualTask struct {
	clock   *manualClock
	at      time.Time
	f       func()
	done    bool
	stopped bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTask{clock: c, at: c.now.Add(d), f: f}
	c.tasks = append(c.tasks, t)
	return t
}

func (t *manualTask) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs every task that became due.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTask
	for _, t := range c.tasks {
		if !t.done && !t.stopped && !t.at.After(c.now) {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// pending counts tasks that have neither fired nor been stopped.
func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tasks {
		if !t.done && !t.stopped {
			n++
		}
	}
	return n
}

// recordingConn keeps every packet sent to it.
type recordingConn struct {
	mu          sync.Mutex
	packets     [][]byte
	closed      bool
	closeCode   int
	closeReason string
}

func (c *recordingConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = append(c.packets, append([]byte(nil), data...))
	return nil
}

func (c *recordingConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	return nil
}

func (c *recordingConn) ids() []internal.PacketID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]internal.PacketID, 0, len(c.packets))
	for _, p := range c.packets {
		var head struct {
			ID internal.PacketID `json:"id"`
		}
		_ = json.Unmarshal(p, &head)
		ids = append(ids, head.ID)
	}
	return ids
}

// last decodes the most recent packet with the given id into v.
func (c *recordingConn) last(t *testing.T, id internal.PacketID, v any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.packets) - 1; i >= 0; i-- {
		var head struct {
			ID internal.PacketID `json:"id"`
		}
		require.NoError(t, json.Unmarshal(c.packets[i], &head))
		if head.ID == id {
			require.NoError(t, json.Unmarshal(c.packets[i], v))
			return
		}
	}
	t.Fatalf("no packet with id %d", id)
}

func (c *recordingConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = nil
}

type fixedWords struct {
	mu    sync.Mutex
	words []string
	next  int
}

func (w *fixedWords) RandomWord() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	word := w.words[w.next%len(w.words)]
	w.next++
	return word
}

type chanRecorder struct {
	results chan internal.GameResult
}

func (r *chanRecorder) RecordGame(_ context.Context, result internal.GameResult) error {
	r.results <- result
	return nil
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func testConfig(clock Clock, words ...string) SessionConfig {
	if len(words) == 0 {
		words = []string{"alarm"}
	}
	return SessionConfig{
		Defaults:    internal.DefaultOptions(),
		SettleDelay: internal.SettleDelay,
		Words:       &fixedWords{words: words},
		Clock:       clock,
		Logger:      nopLogger(),
	}
}

func newTestPlayer(id, name string) (*internal.Player, *recordingConn) {
	conn := &recordingConn{}
	return internal.NewPlayer(id, name, "cat", conn), conn
}

// harness drives a session synchronously without its loop goroutine.
type harness struct {
	t     *testing.T
	s     *Session
	clock *manualClock
	host  *internal.Player
	conns map[string]*recordingConn
}

func newHarness(t *testing.T, mutate ...func(*SessionConfig)) *harness {
	t.Helper()
	clock := newManualClock()
	cfg := testConfig(clock)
	for _, m := range mutate {
		m(&cfg)
	}

	host, hostConn := newTestPlayer("host", "hosty")
	h := &harness{
		t:     t,
		clock: clock,
		host:  host,
		conns: map[string]*recordingConn{"host": hostConn},
	}
	h.s = newSession("ABCDE", cfg, host)
	return h
}

func (h *harness) join(id, name string) *internal.Player {
	h.t.Helper()
	p, conn := newTestPlayer(id, name)
	h.conns[id] = conn
	h.s.dispatch(joinEvent{player: p, reply: make(chan error, 1)})
	require.NotNil(h.t, h.s.player(id), "player %s was not admitted", id)
	return p
}

func (h *harness) send(id string, packet string) {
	h.s.dispatch(messageEvent{playerID: id, data: []byte(packet)})
}

func (h *harness) mustHandle(id string, packet string) {
	h.t.Helper()
	require.NoError(h.t, h.s.handleMessage(id, []byte(packet)))
	h.s.publish()
}

// drain processes everything posted to the inbox so far.
func (h *harness) drain() {
	for {
		select {
		case ev := <-h.s.inbox:
			h.s.dispatch(ev)
		default:
			return
		}
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.drain()
}

func (h *harness) guess(id, word string) {
	h.t.Helper()
	h.mustHandle(id, `{"id":0,"guess":"`+word+`"}`)
}

func (h *harness) start() {
	h.t.Helper()
	h.mustHandle("host", `{"id":3}`)
}
