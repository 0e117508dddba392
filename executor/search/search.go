// Package search implements depth-limited minimax over Kalah positions, with
// optional alpha-beta pruning and a traversal trace.
//
// Depth is counted in turns rather than plies: a move that earns an extra
// turn keeps its continuation at the same depth and with the same
// maximizing/minimizing role.
package search

import (
	"errors"
	"time"

	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/rules"
)

var (
	ErrNoMoves     = errors.New("no legal moves at the root")
	ErrNilPosition = errors.New("nil position")
)

// Options selects the search mode.
type Options struct {
	Prune bool // alpha-beta pruning
	Trace bool // record a TraceEntry per visit
}

// OptionsFor returns the default mode for a task. Competition searches skip
// the trace since nothing reads it.
func OptionsFor(task game.Task) Options {
	switch task {
	case game.TaskAlphaBeta:
		return Options{Prune: true, Trace: true}
	case game.TaskCompetition:
		return Options{Prune: true}
	}
	return Options{Trace: true}
}

// Stats counts what a search visited.
type Stats struct {
	Nodes    int // frames entered, root included
	Leaves   int // frames evaluated without expanding
	Decided  int // leaves that ended on a Win or Loss
	Cutoffs  int // alpha-beta fail-highs and fail-lows
	MaxDepth int // deepest turn depth reached
}

// Result is the outcome of one search.
type Result struct {
	Value Value
	// Line is the principal variation from the root to the leaf that
	// produced Value.
	Line []int
	// Moves is the prefix of Line played by the side to move before the
	// turn passes: one pit, plus one more per extra turn.
	Moves   []int
	Next    *game.GameState
	Trace   []TraceEntry
	Stats   Stats
	Elapsed time.Duration
}

// MoveNames labels the committed moves.
func (r *Result) MoveNames() []string {
	return game.PitNames(r.Next.N(), r.Moves)
}

// frame is one visit of the recursion. fresh marks frames that begin a new
// turn: the root, or a frame reached through a turn-changing move.
type frame struct {
	state *game.GameState
	label string
	root  bool
	fresh bool
}

type searcher struct {
	task        game.Task
	cutoff      int
	perspective game.Player
	opts        Options
	trace       []TraceEntry
	stats       Stats
}

// Search picks the best move sequence for the side to move in pos. The search
// is synchronous and never modifies pos.
func Search(pos *game.Position, opts Options) (*Result, error) {
	if pos == nil || pos.State == nil {
		return nil, ErrNilPosition
	}
	if len(rules.LegalMoves(pos.State)) == 0 {
		return nil, ErrNoMoves
	}

	start := time.Now()
	s := &searcher{
		task:        pos.Task,
		cutoff:      pos.Cutoff,
		perspective: pos.State.ToMove,
		opts:        opts,
	}
	root := frame{state: pos.State, label: "root", root: true, fresh: true}
	value, line := s.expand(root, 0, true, NegInf, PosInf)

	next, moves := Commit(pos.State, line)
	return &Result{
		Value:   value,
		Line:    line,
		Moves:   moves,
		Next:    next,
		Trace:   s.trace,
		Stats:   s.stats,
		Elapsed: time.Since(start),
	}, nil
}

func (s *searcher) expand(f frame, depth int, maximize bool, alpha, beta Value) (Value, []int) {
	s.stats.Nodes++
	if depth > s.stats.MaxDepth {
		s.stats.MaxDepth = depth
	}

	score := fromScore(rules.Evaluate(f.state, s.task, s.perspective))
	moves := rules.LegalMoves(f.state)
	if (f.fresh && depth == s.cutoff) || len(moves) == 0 || (!f.root && score.Decided()) {
		s.stats.Leaves++
		if score.Decided() {
			s.stats.Decided++
		}
		s.record(f, depth, score, alpha, beta)
		return score, nil
	}

	best := PosInf
	if maximize {
		best = NegInf
	}
	var line []int
	s.record(f, depth, best, alpha, beta)

	childDepth := depth
	if f.fresh {
		childDepth++
	}
	n := f.state.N()

	for _, pit := range moves {
		next, changed := rules.Step(f.state, pit)
		child := frame{state: next, label: game.PitName(n, pit), fresh: changed}
		v, sub := s.expand(child, childDepth, maximize != changed, alpha, beta)

		if (maximize && best.Less(v)) || (!maximize && v.Less(best)) {
			best = v
			line = append([]int{pit}, sub...)
		}

		if s.opts.Prune {
			if maximize {
				if !best.Less(beta) {
					s.stats.Cutoffs++
					s.record(f, depth, best, alpha, beta)
					return best, line
				}
				alpha = maxValue(alpha, best)
			} else {
				if !alpha.Less(best) {
					s.stats.Cutoffs++
					s.record(f, depth, best, alpha, beta)
					return best, line
				}
				beta = minValue(beta, best)
			}
		}
		s.record(f, depth, best, alpha, beta)
	}
	return best, line
}

func (s *searcher) record(f frame, depth int, v, alpha, beta Value) {
	if !s.opts.Trace {
		return
	}
	s.trace = append(s.trace, TraceEntry{
		Label:  f.label,
		Depth:  depth,
		Value:  v,
		Alpha:  alpha,
		Beta:   beta,
		Bounds: s.opts.Prune,
	})
}

// Commit replays line from root until the side to move changes, returning
// the resulting state and the pits that were played.
func Commit(root *game.GameState, line []int) (*game.GameState, []int) {
	state := root
	moves := make([]int, 0, len(line))
	for _, pit := range line {
		next, changed := rules.Step(state, pit)
		state = next
		moves = append(moves, pit)
		if changed {
			break
		}
	}
	return state, moves
}
