package selfplay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/kalah/executor/search"
	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/rules"
	"github.com/brensch/kalah/store"
)

// PlayerConfig is how one seat searches.
type PlayerConfig struct {
	Task  game.Task
	Depth int
}

type Config struct {
	One PlayerConfig
	Two PlayerConfig

	Pits  int // pits per side
	Seeds int // seeds per pit at the start

	// RandomPlies is how many opening decisions are sampled uniformly from
	// the legal moves instead of searched.
	RandomPlies int

	Source  string
	Verbose bool
}

func (c Config) For(p game.Player) PlayerConfig {
	if p == game.PlayerTwo {
		return c.Two
	}
	return c.One
}

func (c Config) Validate() error {
	if c.Pits < 1 {
		return fmt.Errorf("pits must be at least 1, got %d", c.Pits)
	}
	if c.Seeds < 1 {
		return fmt.Errorf("seeds must be at least 1, got %d", c.Seeds)
	}
	for _, p := range []game.Player{game.PlayerOne, game.PlayerTwo} {
		pc := c.For(p)
		if !pc.Task.Valid() {
			return fmt.Errorf("player %s: %w: %d", p, rules.ErrInvalidTask, pc.Task)
		}
		if (pc.Task == game.TaskMinimax || pc.Task == game.TaskAlphaBeta) && pc.Depth < 1 {
			return fmt.Errorf("player %s: %w", p, rules.ErrInvalidDepth)
		}
	}
	return nil
}

type GameResult struct {
	GameID   string
	Winner   game.Player // 0 on a draw
	StoreOne int
	StoreTwo int
	Turns    int
	Nodes    int64
}

// InitialState returns the standard opening: every pit holds seeds, both
// stores are empty and player one moves first.
func InitialState(pits, seeds int) *game.GameState {
	s := &game.GameState{Pits: make([]int, 2*pits), ToMove: game.PlayerOne}
	for i := range s.Pits {
		s.Pits[i] = seeds
	}
	return s
}

// turnHook sees every decision after its row is filled in. res is nil for
// random opening moves.
type turnHook func(row *store.TurnRow, state *game.GameState, res *search.Result)

// PlayGame plays one game to the end and returns one row per decision. If ctx
// is cancelled the partial game is dropped and ctx.Err() is returned.
func PlayGame(ctx context.Context, workerID int, cfg Config, rng *rand.Rand, onTurn func()) ([]store.TurnRow, GameResult, error) {
	hook := func(row *store.TurnRow, next *game.GameState, res *search.Result) {
		if cfg.Verbose {
			slog.Info("turn",
				"worker", workerID,
				"turn", row.Turn,
				"player", row.Player,
				"moves", row.MoveNames,
				"value", row.Value,
				"nodes", row.Nodes,
			)
			PrintBoard(int(row.Turn), next)
		}
		if onTurn != nil {
			onTurn()
		}
	}
	return play(ctx, cfg, rng, false, hook)
}

func play(ctx context.Context, cfg Config, rng *rand.Rand, trace bool, hook turnHook) ([]store.TurnRow, GameResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, GameResult{}, err
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	result := GameResult{GameID: uuid.NewString()}
	source := cfg.Source
	if source == "" {
		source = "selfplay"
	}

	state := InitialState(cfg.Pits, cfg.Seeds)
	n := state.N()
	rows := make([]store.TurnRow, 0, 64)

	for !rules.IsGameOver(state) {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil, result, ctx.Err()
			default:
			}
		}

		pc := cfg.For(state.ToMove)
		pos, err := rules.Prepare(state, pc.Task, pc.Depth)
		if err != nil {
			return nil, result, fmt.Errorf("turn %d: %w", result.Turns, err)
		}

		row := store.TurnRow{
			GameID:   result.GameID,
			Turn:     int32(result.Turns),
			Player:   int32(state.ToMove),
			Task:     pc.Task.String(),
			Cutoff:   int32(pos.Cutoff),
			Pits:     store.Int32s(state.Pits),
			StoreOne: int32(state.Store(game.PlayerOne)),
			StoreTwo: int32(state.Store(game.PlayerTwo)),
			Source:   source,
		}

		var res *search.Result
		var next *game.GameState
		var moves []int
		if result.Turns < cfg.RandomPlies {
			legal := rules.LegalMoves(state)
			pit := legal[rng.Intn(len(legal))]
			next, _ = rules.Step(state, pit)
			moves = []int{pit}
			row.Random = true
		} else {
			opts := search.OptionsFor(pc.Task)
			opts.Trace = trace
			res, err = search.Search(pos, opts)
			if err != nil {
				return nil, result, fmt.Errorf("turn %d: %w", result.Turns, err)
			}
			next = res.Next
			moves = res.Moves
			row.Line = store.Int32s(res.Line)
			row.Value = res.Value.String()
			row.Nodes = int64(res.Stats.Nodes)
			row.Cutoffs = int64(res.Stats.Cutoffs)
			row.ElapsedUs = res.Elapsed.Microseconds()
			result.Nodes += int64(res.Stats.Nodes)
		}
		row.Moves = store.Int32s(moves)
		row.MoveNames = store.MoveLabel(n, moves)

		if hook != nil {
			hook(&row, next, res)
		}
		rows = append(rows, row)
		state = next
		result.Turns++
	}

	result.StoreOne = state.Store(game.PlayerOne)
	result.StoreTwo = state.Store(game.PlayerTwo)
	result.Winner = rules.Winner(state)
	for i := range rows {
		rows[i].FinalOne = int32(result.StoreOne)
		rows[i].FinalTwo = int32(result.StoreTwo)
		rows[i].Winner = int32(result.Winner)
	}
	return rows, result, nil
}
