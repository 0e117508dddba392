// Package analysis answers one-off "what would the agent play here"
// questions for the HTTP viewer and the MCP tools. Nothing is played or
// stored.
package analysis

import (
	"errors"
	"fmt"

	"github.com/brensch/kalah/executor/search"
	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/rules"
)

// Limits on a single request. Sowing is linear in the seeds lifted, so the
// seeds left in pits are capped along with the tree shape.
const (
	MaxPits  = 12
	MaxDepth = 10
	MaxSeeds = 1000
)

var ErrTooLarge = errors.New("request exceeds analysis limits")

// Board is a position in display order: North is player two's row and South
// player one's, both left to right as printed.
type Board struct {
	North      []int  `json:"north"`
	South      []int  `json:"south"`
	NorthStore int    `json:"north_store"`
	SouthStore int    `json:"south_store"`
	ToMove     int    `json:"to_move"`
	Text       string `json:"text,omitempty"`
}

func BoardFromState(s *game.GameState) Board {
	if s == nil {
		return Board{}
	}
	return Board{
		North:      s.NorthRow(),
		South:      s.SouthRow(),
		NorthStore: s.Store(game.PlayerTwo),
		SouthStore: s.Store(game.PlayerOne),
		ToMove:     int(s.ToMove),
		Text:       game.FormatBoard(s),
	}
}

// Request describes a decision the same way a task file does. Task is a
// name or numeric code.
type Request struct {
	Task       string `json:"task"`
	Player     int    `json:"player"`
	Depth      int    `json:"depth"`
	North      []int  `json:"north"`
	South      []int  `json:"south"`
	NorthStore int    `json:"north_store"`
	SouthStore int    `json:"south_store"`
}

type Stats struct {
	Nodes    int `json:"nodes"`
	Leaves   int `json:"leaves"`
	Decided  int `json:"decided"`
	Cutoffs  int `json:"cutoffs"`
	MaxDepth int `json:"max_depth"`
}

type Response struct {
	Task      string   `json:"task"`
	Cutoff    int      `json:"cutoff"`
	Moves     []string `json:"moves"`
	Line      []string `json:"line"`
	Value     string   `json:"value"`
	Next      Board    `json:"next"`
	Stats     Stats    `json:"stats"`
	Trace     []string `json:"trace,omitempty"`
	ElapsedUs int64    `json:"elapsed_us"`
}

// Setup validates req against the limits and converts it.
func (req Request) Setup() (game.Setup, error) {
	task, err := game.ParseTask(req.Task)
	if err != nil {
		return game.Setup{}, err
	}
	if len(req.South) > MaxPits || len(req.North) > MaxPits {
		return game.Setup{}, fmt.Errorf("%w: at most %d pits per side", ErrTooLarge, MaxPits)
	}
	if req.Depth > MaxDepth {
		return game.Setup{}, fmt.Errorf("%w: depth is limited to %d", ErrTooLarge, MaxDepth)
	}
	if pitSeeds(req.North, req.South) > MaxSeeds {
		return game.Setup{}, fmt.Errorf("%w: at most %d seeds in pits", ErrTooLarge, MaxSeeds)
	}
	return game.Setup{
		Task:       task,
		Player:     game.Player(req.Player),
		Depth:      req.Depth,
		North:      req.North,
		South:      req.South,
		NorthStore: req.NorthStore,
		SouthStore: req.SouthStore,
	}, nil
}

// pitSeeds sums the positive pit counts, stopping once past MaxSeeds.
// Negative counts are left to rules.New.
func pitSeeds(rows ...[]int) int {
	total := 0
	for _, row := range rows {
		for _, v := range row {
			if v <= 0 {
				continue
			}
			if v > MaxSeeds {
				return v
			}
			total += v
			if total > MaxSeeds {
				return total
			}
		}
	}
	return total
}

// Analyze searches the requested position. withTrace also records and
// returns the traversal log.
func Analyze(req Request, withTrace bool) (*Response, error) {
	setup, err := req.Setup()
	if err != nil {
		return nil, err
	}
	pos, err := rules.New(setup)
	if err != nil {
		return nil, err
	}

	opts := search.OptionsFor(pos.Task)
	opts.Trace = withTrace
	res, err := search.Search(pos, opts)
	if err != nil {
		return nil, err
	}

	n := pos.State.N()
	resp := &Response{
		Task:   pos.Task.String(),
		Cutoff: pos.Cutoff,
		Moves:  res.MoveNames(),
		Line:   game.PitNames(n, res.Line),
		Value:  res.Value.String(),
		Next:   BoardFromState(res.Next),
		Stats: Stats{
			Nodes:    res.Stats.Nodes,
			Leaves:   res.Stats.Leaves,
			Decided:  res.Stats.Decided,
			Cutoffs:  res.Stats.Cutoffs,
			MaxDepth: res.Stats.MaxDepth,
		},
		ElapsedUs: res.Elapsed.Microseconds(),
	}
	if withTrace {
		resp.Trace = make([]string, len(res.Trace))
		for i, e := range res.Trace {
			resp.Trace[i] = e.String()
		}
	}
	return resp, nil
}

// Play applies a single pit, named as in logs (B2, A3, ...), to the
// position described by req and returns the position after it.
func Play(req Request, pit string) (Board, error) {
	// The task only matters for searching.
	req.Task = game.TaskGreedy.String()
	setup, err := req.Setup()
	if err != nil {
		return Board{}, err
	}
	pos, err := rules.New(setup)
	if err != nil {
		return Board{}, err
	}
	idx, err := game.ParsePitName(pos.State.N(), pit)
	if err != nil {
		return Board{}, err
	}
	next, err := rules.Apply(pos.State, idx)
	if err != nil {
		return Board{}, err
	}
	return BoardFromState(next), nil
}
