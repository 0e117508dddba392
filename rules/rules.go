// Package rules implements the Kalah state machine: legal moves, sowing with
// extra turns and captures, and game-end detection.
//
// Every transition returns a fresh GameState; inputs are never modified.
package rules

import (
	"errors"
	"fmt"

	"github.com/brensch/kalah/game"
)

var (
	ErrEmptySide     = errors.New("side has no pits")
	ErrSideMismatch  = errors.New("sides differ in pit count")
	ErrNegativeSeeds = errors.New("negative seed count")
	ErrInvalidPlayer = errors.New("invalid player")
	ErrInvalidTask   = errors.New("invalid task")
	ErrInvalidDepth  = errors.New("depth budget must be at least 1")
	ErrGameOver      = errors.New("game is already over")
	ErrIllegalMove   = errors.New("illegal move")
)

// New builds the root position described by setup.
func New(setup game.Setup) (*game.Position, error) {
	if len(setup.North) == 0 || len(setup.South) == 0 {
		return nil, ErrEmptySide
	}
	if len(setup.North) != len(setup.South) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrSideMismatch, len(setup.North), len(setup.South))
	}
	if !setup.Player.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPlayer, setup.Player)
	}

	n := len(setup.South)
	state := &game.GameState{
		Pits:   make([]int, 2*n),
		ToMove: setup.Player,
	}
	state.Stores[game.PlayerOne.Index()] = setup.SouthStore
	state.Stores[game.PlayerTwo.Index()] = setup.NorthStore
	copy(state.Pits, setup.South)
	for i, v := range setup.North {
		state.Pits[2*n-1-i] = v
	}

	return Prepare(state, setup.Task, setup.Depth)
}

// Prepare validates state and attaches the task and its depth budget.
// Greedy always searches one turn deep; competition picks its own budget
// from the board size and the seeds in play.
func Prepare(state *game.GameState, task game.Task, depth int) (*game.Position, error) {
	if !task.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTask, task)
	}
	if !state.ToMove.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPlayer, state.ToMove)
	}
	if len(state.Pits) == 0 {
		return nil, ErrEmptySide
	}
	for _, v := range state.Pits {
		if v < 0 {
			return nil, ErrNegativeSeeds
		}
	}
	if state.Stores[0] < 0 || state.Stores[1] < 0 {
		return nil, ErrNegativeSeeds
	}
	if IsGameOver(state) {
		return nil, ErrGameOver
	}

	switch task {
	case game.TaskGreedy:
		depth = 1
	case game.TaskCompetition:
		// The formula drops below one on boards far past ten pits.
		depth = max(1, AdaptiveCutoff(state.N(), state.PitSeeds()))
	default:
		if depth < 1 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidDepth, depth)
		}
	}

	return &game.Position{State: state.Clone(), Task: task, Cutoff: depth}, nil
}

// LegalMoves returns the playable pits of the side to move, nearest to the
// opponent first. The order is the search's tie-break order.
func LegalMoves(state *game.GameState) []int {
	lo, hi := state.Side(state.ToMove)
	moves := make([]int, 0, hi-lo)
	for k := hi - 1; k >= lo; k-- {
		if state.Pits[k] > 0 {
			moves = append(moves, k)
		}
	}
	return moves
}

// IsLegal reports whether pit may be played by the side to move.
func IsLegal(state *game.GameState, pit int) bool {
	if pit < 0 || pit >= len(state.Pits) {
		return false
	}
	return state.Owner(pit) == state.ToMove && state.Pits[pit] > 0
}

// Apply is Step with the legality check; it is the entry point for moves that
// do not come from LegalMoves.
func Apply(state *game.GameState, pit int) (*game.GameState, error) {
	if !IsLegal(state, pit) {
		if pit < 0 || pit >= len(state.Pits) {
			return nil, fmt.Errorf("%w: pit %d out of range", ErrIllegalMove, pit)
		}
		return nil, fmt.Errorf("%w: %s", ErrIllegalMove, game.PitName(state.N(), pit))
	}
	next, _ := Step(state, pit)
	return next, nil
}

// Step plays pit for the side to move and reports whether the turn passed to
// the opponent. pit must be legal.
//
// Seeds are sown one per slot around the ring. The mover's store sits between
// their last pit and the opponent's first pit and takes one seed per pass;
// the opponent's store is skipped. Ending in the own store keeps the turn.
// Ending in an own pit that was empty captures that seed and everything in
// the facing pit, even when the facing pit is empty.
func Step(state *game.GameState, pit int) (*game.GameState, bool) {
	next := state.Clone()
	mover := state.ToMove
	ring := len(next.Pits)
	_, gate := next.Side(mover)
	gate %= ring

	seeds := next.Pits[pit]
	next.Pits[pit] = 0

	i := (pit + 1) % ring
	inStore := false
	for ; seeds > 0; seeds-- {
		if !inStore && i == gate {
			inStore = true
			next.Stores[mover.Index()]++
			continue
		}
		next.Pits[i]++
		i = (i + 1) % ring
		inStore = false
	}

	if !inStore {
		last := (i - 1 + ring) % ring
		if next.Owner(last) == mover && next.Pits[last] == 1 {
			mirror := next.Mirror(last)
			next.Stores[mover.Index()] += next.Pits[last] + next.Pits[mirror]
			next.Pits[last] = 0
			next.Pits[mirror] = 0
		}
		next.ToMove = mover.Opponent()
	}

	sweep(next)
	return next, next.ToMove != mover
}

// IsGameOver reports whether either side has run out of seeds.
func IsGameOver(state *game.GameState) bool {
	return state.SideSeeds(game.PlayerOne) == 0 || state.SideSeeds(game.PlayerTwo) == 0
}

// sweep moves each side's remaining seeds into its own store once the game
// has ended. It is a no-op otherwise, and on an already swept board.
func sweep(state *game.GameState) {
	if !IsGameOver(state) {
		return
	}
	for _, p := range []game.Player{game.PlayerOne, game.PlayerTwo} {
		lo, hi := state.Side(p)
		for i := lo; i < hi; i++ {
			state.Stores[p.Index()] += state.Pits[i]
			state.Pits[i] = 0
		}
	}
}

// Winner returns the player with the larger store, or 0 on a draw. It is only
// meaningful once IsGameOver holds.
func Winner(state *game.GameState) game.Player {
	one, two := state.Store(game.PlayerOne), state.Store(game.PlayerTwo)
	switch {
	case one > two:
		return game.PlayerOne
	case two > one:
		return game.PlayerTwo
	}
	return 0
}
