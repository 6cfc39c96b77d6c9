package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrybecker4/applets-sub001/internal/geometry"
)

func TestWindow(t *testing.T) {
	w := Window{Alpha: -3, Beta: 7}
	assert.Equal(t, 10, w.Extent())
	assert.Equal(t, 2, w.MidPoint())
	assert.Equal(t, Window{Alpha: -7, Beta: 3}, w.NegateAndSwap())
	assert.Equal(t, w, w.NegateAndSwap().NegateAndSwap())
	assert.Equal(t, w, w.orient(1))
	assert.Equal(t, w, w.orient(-1).orient(-1))

	assert.True(t, w.Contains(0))
	assert.False(t, w.Contains(7))
	assert.False(t, w.Contains(-3))
	assert.False(t, w.Crossed())
	assert.True(t, Window{Alpha: 4, Beta: 4}.Crossed())
	assert.True(t, Window{}.IsZero())
	assert.Equal(t, "[-3, 7]", w.String())

	assert.True(t, IsWinning(WinningValue))
	assert.True(t, IsWinning(-WinningValue-5))
	assert.False(t, IsWinning(WinningValue-1))
}

func TestPlayer(t *testing.T) {
	assert.Equal(t, Player2, Player1.Opponent())
	assert.Equal(t, Player1, Player2.Opponent())
	assert.Equal(t, NoPlayer, NoPlayer.Opponent())
	assert.Equal(t, 1, Player1.Sign())
	assert.Equal(t, -1, Player2.Sign())
	assert.Equal(t, 0, NoPlayer.Sign())

	assert.Equal(t, Player1, ToMove(nil))
	assert.Equal(t, Player1, ToMove(NewMove(geometry.Location{}, Player2, 0)))
	assert.Equal(t, Player2, ToMove(NewPassMove(Player1)))
}

func TestMoveOrdering(t *testing.T) {
	at := func(r, c, v int) *Move { return NewMove(geometry.Location{Row: r, Col: c}, Player1, v) }
	moves := MoveList{at(2, 2, 1), at(0, 1, 5), at(1, 0, 5), at(0, 0, -4)}
	moves.Sort()

	var got []string
	for _, m := range moves {
		got = append(got, m.To.String())
	}
	assert.Equal(t, []string{"(0,1)", "(1,0)", "(2,2)", "(0,0)"}, got)
	assert.Equal(t, -4, moves.Last().Value)
	assert.Nil(t, MoveList{}.Last())
}

func TestMoveEquality(t *testing.T) {
	a := NewMove(geometry.Location{Row: 1, Col: 2}, Player1, 3)
	b := NewMove(geometry.Location{Row: 1, Col: 2}, Player1, -8)
	assert.True(t, a.Equal(b), "values do not matter")
	assert.False(t, a.Equal(NewMove(a.To, Player2, 3)))
	assert.False(t, NewPassMove(Player1).Equal(NewMove(geometry.Location{}, Player1, 0)))
	assert.False(t, a.Equal(nil))

	list := MoveList{a}
	assert.True(t, list.Contains(b))
	clone := list.Clone()
	clone[0].Value = 99
	assert.Equal(t, 3, a.Value)

	var none *Move
	assert.Equal(t, "<none>", none.String())
	assert.Equal(t, "player2 pass", NewPassMove(Player2).String())
}

func TestWeights(t *testing.T) {
	w := Weights{1.5, 2}
	assert.Equal(t, 2.0, w.At(1, 9))
	assert.Equal(t, 9.0, w.At(2, 9))
	assert.Equal(t, 9.0, Weights(nil).At(0, 9))
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	var o Options
	o.ApplyDefaults()
	assert.Equal(t, NegaMax, o.Strategy)
	assert.Equal(t, DefaultLookAhead, o.LookAhead)
	assert.Equal(t, FullWindow(), o.InitialWindow)
	assert.False(t, o.AlphaBeta, "booleans are not defaulted")
	require.NoError(t, o.Validate())

	cases := map[string]func(*Options){
		"unknown strategy":   func(o *Options) { o.Strategy = "alphago" },
		"zero lookahead":     func(o *Options) { o.LookAhead = 0 },
		"negative quiescent": func(o *Options) { o.MaxQuiescentDepth = -1 },
		"crossed window":     func(o *Options) { o.InitialWindow = Window{Alpha: 1, Beta: 0} },
		"total below ahead":  func(o *Options) { o.MaxTotalDepth = 2 },
		"negascout no ab":    func(o *Options) { o.Strategy = NegaScout; o.AlphaBeta = false },
		"poll too slow":      func(o *Options) { o.PausePollMillis = 120_000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := DefaultOptions()
			mutate(&o)
			assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)
		})
	}

	bad := DefaultOptions()
	bad.Strategy = "alphago"
	assert.ErrorIs(t, bad.Validate(), ErrUnknownKind)

	q := DefaultOptions()
	assert.Equal(t, 0, q.quiescentDepth())
	q.Quiescence = true
	assert.Equal(t, DefaultMaxQuiescentDepth, q.quiescentDepth())
	assert.Equal(t, 100*time.Millisecond, q.PausePollInterval())
}

func TestPauseControllerWait(t *testing.T) {
	p := NewPauseController()
	require.NoError(t, p.Wait(context.Background(), time.Millisecond))

	p.Pause()
	assert.True(t, p.IsPaused())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Wait(ctx, time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	go func() {
		time.Sleep(5 * time.Millisecond)
		p.ContinueProcessing()
	}()
	require.NoError(t, p.Wait(context.Background(), time.Millisecond))
	assert.False(t, p.IsPaused())

	var none *PauseController
	assert.False(t, none.IsPaused())
}

func TestDiagnostics(t *testing.T) {
	d := NewDiagnostics(zerolog.Nop(), 2)
	var seen []AnomalyKind
	d.OnAnomaly(func(a Anomaly) { seen = append(seen, a.Kind) })

	d.Record(Anomaly{Kind: CacheCollision, Detail: "one"})
	d.Record(Anomaly{Kind: CacheCollision, Detail: "two"})
	d.Record(Anomaly{Kind: Interrupted, Detail: "three"})

	assert.Equal(t, int64(2), d.Count(CacheCollision))
	assert.Equal(t, int64(1), d.Count(Interrupted))
	assert.Zero(t, d.Count(NonAlternatingMove))

	recent := d.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Detail)
	assert.Equal(t, "three", recent[1].Detail)
	assert.False(t, recent[1].At.IsZero())
	assert.Equal(t, []AnomalyKind{CacheCollision, CacheCollision, Interrupted}, seen)

	var none *Diagnostics
	none.Record(Anomaly{Kind: CacheCollision})
	none.OnAnomaly(nil)
	assert.Zero(t, none.Count(CacheCollision))
	assert.Nil(t, none.Recent())
}
