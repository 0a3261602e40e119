package game

import (
	"math"
	"time"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// Stopper cancels a pending scheduled call. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Clock is the time source for sessions.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

type timerKind int

const (
	timerRound timerKind = iota
	timerSettle
)

func (k timerKind) String() string {
	if k == timerSettle {
		return "settle"
	}
	return "round"
}

// timerEvent is posted to the session inbox when a scheduled task fires.
// Events whose generation no longer matches the session are stale.
type timerEvent struct {
	kind timerKind
	gen  uint64
}

// scheduleTimer replaces any pending task with a new one of the given kind.
func (s *Session) scheduleTimer(kind timerKind, d time.Duration) {
	s.cancelTimer()

	gen := s.timerGen
	s.timer = s.clock.AfterFunc(d, func() {
		_ = s.post(timerEvent{kind: kind, gen: gen})
	})
	if kind == timerRound {
		s.roundDeadline = s.clock.Now().Add(d)
	}

	s.log.Debug().
		Str("timer", kind.String()).
		Dur("duration", d).
		Uint64("gen", gen).
		Msg("timer scheduled")
}

// cancelTimer stops the pending task, if any, and invalidates anything it
// may already have posted.
func (s *Session) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
	s.roundDeadline = time.Time{}
}

func (s *Session) handleTimer(ev timerEvent) {
	if ev.gen != s.timerGen {
		s.log.Debug().Uint64("gen", ev.gen).Msg("stale timer ignored")
		return
	}
	s.timer = nil

	switch ev.kind {
	case timerRound:
		if s.phase != internal.PhaseRoundActive {
			return
		}
		s.log.Info().Int("round", s.roundsPlayed).Msg("round timer expired")
		s.endRound()
	case timerSettle:
		s.startRound()
	}
}

// secondsRemaining is the whole seconds left in the active round, rounded up.
func (s *Session) secondsRemaining() int {
	if s.phase != internal.PhaseRoundActive || s.roundDeadline.IsZero() {
		return 0
	}
	left := s.roundDeadline.Sub(s.clock.Now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}
