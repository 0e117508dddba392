package rules

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/brensch/kalah/game"
)

func dumpState(state *game.GameState) string {
	if state == nil {
		return "<nil state>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ToMove=%s Pits=%v Stores=%v\n", state.ToMove, state.Pits, state.Stores)
	b.WriteString(game.FormatBoard(state))
	b.WriteString("\n")
	return b.String()
}

func logStep(t *testing.T, label string, before *game.GameState, pit int, after *game.GameState) {
	t.Helper()
	t.Logf("%s\n  BEFORE (pit=%s):\n%s  AFTER:\n%s", label, game.PitName(before.N(), pit), dumpState(before), dumpState(after))
}

func mustNew(t *testing.T, player game.Player, north, south []int, northStore, southStore int) *game.GameState {
	t.Helper()
	pos, err := New(game.Setup{
		Task:       game.TaskMinimax,
		Player:     player,
		Depth:      1,
		North:      north,
		South:      south,
		NorthStore: northStore,
		SouthStore: southStore,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return pos.State
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNew_RingLayout(t *testing.T) {
	s := mustNew(t, game.PlayerOne, []int{1, 2, 3}, []int{4, 5, 6}, 7, 8)

	want := []int{4, 5, 6, 3, 2, 1}
	if !equalInts(s.Pits, want) {
		t.Fatalf("pits=%v want=%v", s.Pits, want)
	}
	if s.Store(game.PlayerOne) != 8 || s.Store(game.PlayerTwo) != 7 {
		t.Fatalf("stores=%v want one=8 two=7", s.Stores)
	}
	if !equalInts(s.NorthRow(), []int{1, 2, 3}) || !equalInts(s.SouthRow(), []int{4, 5, 6}) {
		t.Fatalf("rows north=%v south=%v", s.NorthRow(), s.SouthRow())
	}
}

func TestNew_Errors(t *testing.T) {
	cases := []struct {
		name  string
		setup game.Setup
		want  error
	}{
		{"empty north", game.Setup{Task: game.TaskMinimax, Player: 1, Depth: 2, South: []int{1}}, ErrEmptySide},
		{"empty south", game.Setup{Task: game.TaskMinimax, Player: 1, Depth: 2, North: []int{1}}, ErrEmptySide},
		{"mismatch", game.Setup{Task: game.TaskMinimax, Player: 1, Depth: 2, North: []int{1, 1}, South: []int{1}}, ErrSideMismatch},
		{"bad player", game.Setup{Task: game.TaskMinimax, Player: 3, Depth: 2, North: []int{1}, South: []int{1}}, ErrInvalidPlayer},
		{"bad task", game.Setup{Task: 9, Player: 1, Depth: 2, North: []int{1}, South: []int{1}}, ErrInvalidTask},
		{"bad depth", game.Setup{Task: game.TaskAlphaBeta, Player: 1, Depth: 0, North: []int{1}, South: []int{1}}, ErrInvalidDepth},
		{"negative", game.Setup{Task: game.TaskMinimax, Player: 1, Depth: 2, North: []int{1, -1}, South: []int{1, 1}}, ErrNegativeSeeds},
		{"over south", game.Setup{Task: game.TaskMinimax, Player: 1, Depth: 2, North: []int{1, 1}, South: []int{0, 0}}, ErrGameOver},
		{"over north", game.Setup{Task: game.TaskMinimax, Player: 1, Depth: 2, North: []int{0, 0}, South: []int{3, 0}, SouthStore: 4}, ErrGameOver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.setup)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestNew_TaskOverridesCutoff(t *testing.T) {
	base := game.Setup{Player: 1, Depth: 7, North: []int{2, 2, 2}, South: []int{2, 2, 2}}

	greedy := base
	greedy.Task = game.TaskGreedy
	pos, err := New(greedy)
	if err != nil {
		t.Fatalf("New greedy: %v", err)
	}
	if pos.Cutoff != 1 {
		t.Fatalf("greedy cutoff=%d want=1", pos.Cutoff)
	}

	comp := base
	comp.Task = game.TaskCompetition
	pos, err = New(comp)
	if err != nil {
		t.Fatalf("New competition: %v", err)
	}
	if want := AdaptiveCutoff(3, 12); pos.Cutoff != want {
		t.Fatalf("competition cutoff=%d want=%d", pos.Cutoff, want)
	}

	mm := base
	mm.Task = game.TaskMinimax
	pos, err = New(mm)
	if err != nil {
		t.Fatalf("New minimax: %v", err)
	}
	if pos.Cutoff != 7 {
		t.Fatalf("minimax cutoff=%d want=7", pos.Cutoff)
	}
}

func TestNew_CompetitionCutoffAtLeastOne(t *testing.T) {
	for _, n := range []int{100, 144, 400} {
		side := make([]int, n)
		for i := range side {
			side[i] = 4
		}
		pos, err := New(game.Setup{
			Task:   game.TaskCompetition,
			Player: game.PlayerOne,
			North:  side,
			South:  append([]int(nil), side...),
		})
		if err != nil {
			t.Fatalf("New n=%d: %v", n, err)
		}
		if pos.Cutoff != 1 {
			t.Fatalf("n=%d competition cutoff=%d want=1 (raw %d)", n, pos.Cutoff, AdaptiveCutoff(n, 8*n))
		}
	}
}

func TestLegalMoves_Order(t *testing.T) {
	s := mustNew(t, game.PlayerOne, []int{1, 0, 3}, []int{2, 0, 5}, 0, 0)
	if got := LegalMoves(s); !equalInts(got, []int{2, 0}) {
		t.Fatalf("player one moves=%v want=[2 0]", got)
	}

	s.ToMove = game.PlayerTwo
	// Ring 3 is A4, ring 5 is A2.
	if got := LegalMoves(s); !equalInts(got, []int{5, 3}) {
		t.Fatalf("player two moves=%v want=[5 3]", got)
	}
}

func TestStep_ExtraTurnWhenLandingInStore(t *testing.T) {
	before := mustNew(t, game.PlayerOne, []int{2, 2, 2}, []int{2, 2, 2}, 0, 0)
	after, changed := Step(before, 1)
	logStep(t, "extra turn", before, 1, after)

	if changed || after.ToMove != game.PlayerOne {
		t.Fatalf("turn changed=%v toMove=%s, want same player", changed, after.ToMove)
	}
	if !equalInts(after.Pits, []int{2, 0, 3, 2, 2, 2}) {
		t.Fatalf("pits=%v", after.Pits)
	}
	if after.Store(game.PlayerOne) != 1 {
		t.Fatalf("store=%d want=1", after.Store(game.PlayerOne))
	}
	if !equalInts(before.Pits, []int{2, 2, 2, 2, 2, 2}) {
		t.Fatalf("input state was modified: %v", before.Pits)
	}
}

func TestStep_Capture(t *testing.T) {
	before := mustNew(t, game.PlayerOne, []int{2, 5, 2}, []int{1, 0, 3}, 0, 0)
	after, changed := Step(before, 0)
	logStep(t, "capture", before, 0, after)

	if !changed || after.ToMove != game.PlayerTwo {
		t.Fatalf("expected turn to pass, changed=%v", changed)
	}
	if !equalInts(after.Pits, []int{0, 0, 3, 2, 0, 2}) {
		t.Fatalf("pits=%v", after.Pits)
	}
	if after.Store(game.PlayerOne) != 6 {
		t.Fatalf("store=%d want=6 (5 captured + landing seed)", after.Store(game.PlayerOne))
	}
}

func TestStep_CaptureWithEmptyMirror(t *testing.T) {
	before := mustNew(t, game.PlayerOne, []int{2, 0, 2}, []int{1, 0, 3}, 0, 0)
	after, _ := Step(before, 0)
	logStep(t, "capture empty mirror", before, 0, after)

	if after.Pits[1] != 0 {
		t.Fatalf("landing pit=%d want=0", after.Pits[1])
	}
	if after.Store(game.PlayerOne) != 1 {
		t.Fatalf("store=%d want=1", after.Store(game.PlayerOne))
	}
}

func TestStep_NoCaptureOnOpponentSide(t *testing.T) {
	// Player two sows A2: one seed into their store, then B2 and B3.
	before := mustNew(t, game.PlayerTwo, []int{3, 1, 1}, []int{1, 1, 1}, 0, 0)
	after, changed := Step(before, 5)
	logStep(t, "player two passes store", before, 5, after)

	if !changed || after.ToMove != game.PlayerOne {
		t.Fatalf("expected turn to pass to player one")
	}
	if !equalInts(after.Pits, []int{2, 2, 1, 1, 1, 0}) {
		t.Fatalf("pits=%v", after.Pits)
	}
	if after.Store(game.PlayerTwo) != 1 || after.Store(game.PlayerOne) != 0 {
		t.Fatalf("stores=%v", after.Stores)
	}
}

func TestStep_WrapSkipsOpponentStore(t *testing.T) {
	before := mustNew(t, game.PlayerOne, []int{1, 1, 1}, []int{1, 1, 8}, 0, 0)
	after, changed := Step(before, 2)
	logStep(t, "wrap", before, 2, after)

	if changed {
		t.Fatalf("eighth seed lands in own store on the second pass, turn should stay")
	}
	if !equalInts(after.Pits, []int{2, 2, 1, 2, 2, 2}) {
		t.Fatalf("pits=%v", after.Pits)
	}
	if after.Store(game.PlayerOne) != 2 || after.Store(game.PlayerTwo) != 0 {
		t.Fatalf("stores=%v", after.Stores)
	}
}

func TestStep_GameEndSweep(t *testing.T) {
	before := mustNew(t, game.PlayerOne, []int{4, 3, 2}, []int{0, 0, 1}, 5, 6)
	after, _ := Step(before, 2)
	logStep(t, "sweep", before, 2, after)

	if !IsGameOver(after) {
		t.Fatalf("expected game over")
	}
	if after.PitSeeds() != 0 {
		t.Fatalf("pits not cleared: %v", after.Pits)
	}
	if after.Store(game.PlayerOne) != 7 || after.Store(game.PlayerTwo) != 14 {
		t.Fatalf("stores=%v want one=7 two=14", after.Stores)
	}
	if Winner(after) != game.PlayerTwo {
		t.Fatalf("winner=%v want=2", Winner(after))
	}
	if len(LegalMoves(after)) != 0 {
		t.Fatalf("no moves expected after the game ends")
	}
}

func TestApply_RejectsIllegalPits(t *testing.T) {
	s := mustNew(t, game.PlayerOne, []int{2, 2, 2}, []int{2, 0, 2}, 0, 0)
	for _, pit := range []int{-1, 1, 3, 5, 6} {
		if _, err := Apply(s, pit); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("pit %d: err=%v want ErrIllegalMove", pit, err)
		}
	}
	if _, err := Apply(s, 2); err != nil {
		t.Fatalf("legal pit rejected: %v", err)
	}
}

// Random playouts check the invariants that hold for every move.
func TestStep_RandomPlayoutInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for g := 0; g < 200; g++ {
		n := 3 + rng.Intn(6)
		north := make([]int, n)
		south := make([]int, n)
		for i := 0; i < n; i++ {
			north[i] = 1 + rng.Intn(6)
			south[i] = 1 + rng.Intn(6)
		}
		state := mustNew(t, game.Player(1+rng.Intn(2)), north, south, 0, 0)
		total := state.TotalSeeds()

		for !IsGameOver(state) {
			moves := LegalMoves(state)
			if len(moves) == 0 {
				t.Fatalf("live game without moves:\n%s", dumpState(state))
			}
			pit := moves[rng.Intn(len(moves))]
			next, changed := Step(state, pit)

			if next.TotalSeeds() != total {
				logStep(t, "conservation", state, pit, next)
				t.Fatalf("total seeds %d -> %d", total, next.TotalSeeds())
			}
			for i, v := range next.Pits {
				if v < 0 {
					t.Fatalf("pit %d negative: %v", i, next.Pits)
				}
			}
			if changed != (next.ToMove != state.ToMove) {
				t.Fatalf("changed=%v but toMove %s -> %s", changed, state.ToMove, next.ToMove)
			}
			if next.Store(state.ToMove.Opponent()) < state.Store(state.ToMove.Opponent()) {
				t.Fatalf("opponent store decreased")
			}
			state = next
		}
		if state.PitSeeds() != 0 {
			t.Fatalf("finished game left seeds in pits:\n%s", dumpState(state))
		}
	}
}

func TestEvaluate(t *testing.T) {
	s := mustNew(t, game.PlayerOne, []int{2, 2, 2}, []int{1, 0, 0}, 3, 5)

	if got := Evaluate(s, game.TaskMinimax, game.PlayerOne); got != (Score{Points: 2}) {
		t.Fatalf("minimax p1=%v want 2", got)
	}
	if got := Evaluate(s, game.TaskMinimax, game.PlayerTwo); got != (Score{Points: -2}) {
		t.Fatalf("minimax p2=%v want -2", got)
	}

	// 2.22*2 - 0.38*(1-6) = 6.34
	if got := Evaluate(s, game.TaskCompetition, game.PlayerOne); got != (Score{Points: 6}) {
		t.Fatalf("competition p1=%v want 6", got)
	}
	if got := Evaluate(s, game.TaskCompetition, game.PlayerTwo); got != (Score{Points: -6}) {
		t.Fatalf("competition p2=%v want -6", got)
	}
}

func TestEvaluate_DecidedPositions(t *testing.T) {
	s := mustNew(t, game.PlayerOne, []int{1, 1, 1}, []int{1, 0, 0}, 0, 10)

	if got := Evaluate(s, game.TaskCompetition, game.PlayerOne); got.Outcome != Win {
		t.Fatalf("p1 outcome=%v want Win", got)
	}
	if got := Evaluate(s, game.TaskCompetition, game.PlayerTwo); got.Outcome != Loss {
		t.Fatalf("p2 outcome=%v want Loss", got)
	}
	// Basic tasks never saturate.
	if got := Evaluate(s, game.TaskAlphaBeta, game.PlayerOne); got != (Score{Points: 10}) {
		t.Fatalf("alphabeta=%v want 10", got)
	}

	// A lead equal to the seeds in play is not yet decided.
	s = mustNew(t, game.PlayerOne, []int{1, 1, 1}, []int{1, 0, 0}, 0, 4)
	if got := Evaluate(s, game.TaskCompetition, game.PlayerOne); got.Decided() {
		t.Fatalf("lead == seeds in play should be ongoing, got %v", got)
	}
}

func TestAdaptiveCutoff(t *testing.T) {
	cases := []struct{ n, total, want int }{
		{3, 18, 9},
		{6, 72, 8},
		{6, 48, 8},
		{10, 10000, 5},
		{3, 1, 10},
		{3, 0, 10},
		{100, 400, 0},
		{144, 576, -2},
	}
	for _, tc := range cases {
		if got := AdaptiveCutoff(tc.n, tc.total); got != tc.want {
			t.Fatalf("AdaptiveCutoff(%d,%d)=%d want=%d", tc.n, tc.total, got, tc.want)
		}
	}
}
