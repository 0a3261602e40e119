package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlrightyTighty/baddle-backend/internal"
	"github.com/AlrightyTighty/baddle-backend/internal/utils"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(testConfig(newManualClock()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = r.CloseAll(ctx, CloseGoingAway, "test over")
	})
	return r
}

// sequenceCodes hands out codes in order, repeating the last one.
func sequenceCodes(codes ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		code := codes[min(i, len(codes)-1)]
		i++
		return code
	}
}

func waitClosed(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("room %s did not close", s.Code())
	}
}

func TestRegistry_CreateSendsSnapshotToHost(t *testing.T) {
	r := newTestRegistry(t)
	host, conn := newTestPlayer("host", "hosty")

	s, err := r.Create(host)
	require.NoError(t, err)
	assert.True(t, utils.IsRoomCode(s.Code()))
	assert.Equal(t, 1, r.Len())

	require.Eventually(t, func() bool { return len(conn.ids()) > 0 }, time.Second, 5*time.Millisecond)
	var snap internal.AllInfoPacket
	conn.last(t, internal.PacketAllInfo, &snap)
	assert.Equal(t, s.Code(), snap.Game.Code)
	require.Len(t, snap.Players, 1)
	assert.True(t, snap.Players[0].IsHost)
}

func TestRegistry_ConcurrentCreatesGetUniqueCodes(t *testing.T) {
	r := newTestRegistry(t)
	const n = 64

	codes := make(chan string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			host, _ := newTestPlayer(utils.GenerateID(), "p")
			s, err := r.Create(host)
			if assert.NoError(t, err, "create %d", i) {
				codes <- s.Code()
			}
		}()
	}
	wg.Wait()
	close(codes)

	seen := map[string]bool{}
	for code := range codes {
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, r.Len())
}

func TestRegistry_RejectionSamplingSkipsLiveCodes(t *testing.T) {
	r := newTestRegistry(t)
	r.newCode = sequenceCodes("AAAAA", "AAAAA", "AAAAA", "BBBBB")

	first, err := r.Create(internal.NewPlayer("1", "one", "", &recordingConn{}))
	require.NoError(t, err)
	second, err := r.Create(internal.NewPlayer("2", "two", "", &recordingConn{}))
	require.NoError(t, err)

	assert.Equal(t, "AAAAA", first.Code())
	assert.Equal(t, "BBBBB", second.Code())
}

func TestRegistry_CodeExhaustion(t *testing.T) {
	r := newTestRegistry(t)
	r.newCode = sequenceCodes("AAAAA")

	_, err := r.Create(internal.NewPlayer("1", "one", "", &recordingConn{}))
	require.NoError(t, err)
	_, err = r.Create(internal.NewPlayer("2", "two", "", &recordingConn{}))
	assert.ErrorIs(t, err, ErrNoCodeAvailable)
}

func TestRegistry_CodeReusableAfterClose(t *testing.T) {
	r := newTestRegistry(t)
	r.newCode = sequenceCodes("AAAAA")

	s, err := r.Create(internal.NewPlayer("1", "one", "", &recordingConn{}))
	require.NoError(t, err)

	s.Leave("1")
	waitClosed(t, s)

	_, err = r.Lookup("AAAAA")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Zero(t, r.Len())

	again, err := r.Create(internal.NewPlayer("2", "two", "", &recordingConn{}))
	require.NoError(t, err)
	assert.Equal(t, "AAAAA", again.Code())
	assert.NotSame(t, s, again)
}

func TestRegistry_StaleRemoveKeepsNewSession(t *testing.T) {
	r := newTestRegistry(t)
	r.newCode = sequenceCodes("AAAAA")

	s, err := r.Create(internal.NewPlayer("1", "one", "", &recordingConn{}))
	require.NoError(t, err)
	s.Leave("1")
	waitClosed(t, s)

	again, err := r.Create(internal.NewPlayer("2", "two", "", &recordingConn{}))
	require.NoError(t, err)

	r.remove(s)

	found, err := r.Lookup("AAAAA")
	require.NoError(t, err)
	assert.Same(t, again, found)
}

func TestRegistry_Join(t *testing.T) {
	r := newTestRegistry(t)
	r.newCode = sequenceCodes("QWERT")
	ctx := context.Background()

	_, err := r.Create(internal.NewPlayer("host", "hosty", "", &recordingConn{}))
	require.NoError(t, err)

	s, err := r.Join(ctx, " qwert ", internal.NewPlayer("guest", "gus", "", &recordingConn{}))
	require.NoError(t, err)
	assert.Equal(t, "QWERT", s.Code())
	assert.Equal(t, 2, s.Info().PlayerCount)

	_, err = r.Join(ctx, "ZZZZZ", internal.NewPlayer("x", "x", "", &recordingConn{}))
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = r.Join(ctx, "", internal.NewPlayer("y", "y", "", &recordingConn{}))
	assert.ErrorIs(t, err, ErrCodeRequired)
}

func TestRegistry_JoinClosedSession(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.Create(internal.NewPlayer("host", "hosty", "", &recordingConn{}))
	require.NoError(t, err)

	s.Leave("host")
	waitClosed(t, s)

	err = s.Join(context.Background(), internal.NewPlayer("late", "lat", "", &recordingConn{}))
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestRegistry_JoinableRoom(t *testing.T) {
	r := newTestRegistry(t)

	_, ok := r.JoinableRoom()
	assert.False(t, ok)

	s, err := r.Create(internal.NewPlayer("host", "hosty", "", &recordingConn{}))
	require.NoError(t, err)

	code, ok := r.JoinableRoom()
	assert.True(t, ok)
	assert.Equal(t, s.Code(), code)

	require.NoError(t, s.Deliver("host", []byte(`{"id":3}`)))
	require.Eventually(t, func() bool { return s.Info().Started }, time.Second, 5*time.Millisecond)

	_, ok = r.JoinableRoom()
	assert.False(t, ok)
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry(testConfig(newManualClock()))

	var conns []*recordingConn
	var sessions []*Session
	for i := range 3 {
		conn := &recordingConn{}
		s, err := r.Create(internal.NewPlayer(utils.GenerateID(), "p", "", conn))
		require.NoError(t, err, "create %d", i)
		conns = append(conns, conn)
		sessions = append(sessions, s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.CloseAll(ctx, CloseGoingAway, "Server shutting down"))

	assert.Zero(t, r.Len())
	for i, s := range sessions {
		waitClosed(t, s)
		conns[i].mu.Lock()
		assert.True(t, conns[i].closed)
		assert.Equal(t, CloseGoingAway, conns[i].closeCode)
		assert.Equal(t, "Server shutting down", conns[i].closeReason)
		conns[i].mu.Unlock()
	}
}
