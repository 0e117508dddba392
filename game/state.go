// Package game defines the core value types for Kalah.
//
// A GameState is a plain snapshot of the board: the pit ring, both stores and
// the side to move. It carries no search bookkeeping, so it can be cloned
// freely while the search explores the game tree.
package game

import "fmt"

// Player identifies a seat. Player one owns ring indices [0,n), player two
// owns [n,2n).
type Player int8

const (
	PlayerOne Player = 1
	PlayerTwo Player = 2
)

// Index returns the player's slot in per-player arrays such as Stores.
func (p Player) Index() int {
	return int(p) - 1
}

// Opponent returns the other seat.
func (p Player) Opponent() Player {
	if p == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

func (p Player) Valid() bool {
	return p == PlayerOne || p == PlayerTwo
}

func (p Player) String() string {
	switch p {
	case PlayerOne:
		return "1"
	case PlayerTwo:
		return "2"
	}
	return fmt.Sprintf("Player(%d)", int8(p))
}

// Task selects the search mode and evaluation. The numeric values match the
// task codes used by input files.
type Task int8

const (
	TaskGreedy      Task = 1
	TaskMinimax     Task = 2
	TaskAlphaBeta   Task = 3
	TaskCompetition Task = 4
)

func (t Task) Valid() bool {
	return t >= TaskGreedy && t <= TaskCompetition
}

func (t Task) String() string {
	switch t {
	case TaskGreedy:
		return "greedy"
	case TaskMinimax:
		return "minimax"
	case TaskAlphaBeta:
		return "alphabeta"
	case TaskCompetition:
		return "competition"
	}
	return fmt.Sprintf("Task(%d)", int8(t))
}

// ParseTask accepts either the numeric code or the name.
func ParseTask(s string) (Task, error) {
	for t := TaskGreedy; t <= TaskCompetition; t++ {
		if s == t.String() || s == fmt.Sprint(int8(t)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown task %q", s)
}

// GameState is one board snapshot.
//
// Pits holds the ring of 2n pits. Ring order is the sowing order: player
// one's pits B2..B(n+1) are indices 0..n-1, followed by player two's pits
// A(n+1)..A2 at indices n..2n-1. Stores are kept outside the ring.
type GameState struct {
	Pits   []int
	Stores [2]int
	ToMove Player
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := &GameState{
		Stores: s.Stores,
		ToMove: s.ToMove,
	}
	if len(s.Pits) > 0 {
		out.Pits = make([]int, len(s.Pits))
		copy(out.Pits, s.Pits)
	}
	return out
}

// N is the number of pits per side.
func (s *GameState) N() int {
	return len(s.Pits) / 2
}

// Side returns the ring index range [lo,hi) owned by p.
func (s *GameState) Side(p Player) (lo, hi int) {
	n := s.N()
	if p == PlayerOne {
		return 0, n
	}
	return n, 2 * n
}

// Owner returns the player owning ring index i.
func (s *GameState) Owner(i int) Player {
	if i < s.N() {
		return PlayerOne
	}
	return PlayerTwo
}

// Mirror returns the ring index facing i across the board.
func (s *GameState) Mirror(i int) int {
	return len(s.Pits) - 1 - i
}

// SideSeeds sums the seeds in p's pits, stores excluded.
func (s *GameState) SideSeeds(p Player) int {
	lo, hi := s.Side(p)
	total := 0
	for _, v := range s.Pits[lo:hi] {
		total += v
	}
	return total
}

// PitSeeds sums every pit on the board, stores excluded.
func (s *GameState) PitSeeds() int {
	return s.SideSeeds(PlayerOne) + s.SideSeeds(PlayerTwo)
}

// TotalSeeds sums pits and stores. It never changes during a game.
func (s *GameState) TotalSeeds() int {
	return s.PitSeeds() + s.Stores[0] + s.Stores[1]
}

// Store returns p's store count.
func (s *GameState) Store(p Player) int {
	return s.Stores[p.Index()]
}

// Position is a state prepared for a search: the task decides evaluation and
// search mode, and Cutoff is the depth budget in turn-changing plies.
type Position struct {
	State  *GameState
	Task   Task
	Cutoff int
}

// Setup is the raw description of a decision, as read from an input file.
//
// North holds player two's pits as displayed, A2..A(n+1) from left to right.
// South holds player one's pits, B2..B(n+1) from left to right.
type Setup struct {
	Task       Task
	Player     Player
	Depth      int
	TimeLeft   float64 // seconds, competition only
	North      []int
	South      []int
	NorthStore int
	SouthStore int
}
