package rules

import (
	"fmt"
	"math"

	"github.com/brensch/kalah/game"
)

// Outcome separates decided positions from heuristic scores.
type Outcome int8

const (
	Ongoing Outcome = iota
	Win
	Loss
)

// Score is an evaluation from one player's perspective. Points is only
// meaningful for Ongoing scores.
type Score struct {
	Outcome Outcome
	Points  int
}

// Decided reports whether the score is a forced win or loss.
func (s Score) Decided() bool {
	return s.Outcome != Ongoing
}

// Flip returns the same evaluation from the opponent's perspective.
func (s Score) Flip() Score {
	switch s.Outcome {
	case Win:
		return Score{Outcome: Loss}
	case Loss:
		return Score{Outcome: Win}
	}
	return Score{Points: -s.Points}
}

func (s Score) String() string {
	switch s.Outcome {
	case Win:
		return "Win"
	case Loss:
		return "Loss"
	}
	return fmt.Sprint(s.Points)
}

// Heuristic weights for the competition evaluation. Keeping fewer seeds on
// one's own side scores higher.
const (
	storeWeight = 2.22
	pieceWeight = 0.38
)

// Evaluate scores state for perspective. Basic tasks use the plain store
// difference; competition adds the seed distribution term and recognises
// positions where the store lead can no longer be overturned.
func Evaluate(state *game.GameState, task game.Task, perspective game.Player) Score {
	var s Score
	if task == game.TaskCompetition {
		s = competitionScore(state)
	} else {
		s = Score{Points: state.Store(game.PlayerOne) - state.Store(game.PlayerTwo)}
	}
	if perspective == game.PlayerTwo {
		return s.Flip()
	}
	return s
}

// competitionScore is always from player one's perspective.
func competitionScore(state *game.GameState) Score {
	piecesOne := state.SideSeeds(game.PlayerOne)
	piecesTwo := state.SideSeeds(game.PlayerTwo)
	inPlay := piecesOne + piecesTwo
	lead := state.Store(game.PlayerOne) - state.Store(game.PlayerTwo)

	if lead > inPlay {
		return Score{Outcome: Win}
	}
	if -lead > inPlay {
		return Score{Outcome: Loss}
	}

	v := storeWeight*float64(lead) - pieceWeight*float64(piecesOne-piecesTwo)
	return Score{Points: int(math.Round(v))}
}

// AdaptiveCutoff picks a depth budget from the board size n (3..10) and the
// seeds still in pits (1..10000): bigger boards and more seeds search
// shallower. Outside those ranges the result can be zero or negative.
func AdaptiveCutoff(n, total int) int {
	if total < 1 {
		total = 1
	}
	return int(math.Round(12 - math.Sqrt(float64(n)) - math.Log(float64(total))/math.Log(15)))
}
