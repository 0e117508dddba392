package game

import (
	"fmt"
	"strings"
)

const cellWidth = 5

// NorthRow returns player two's pits in display order, A2..A(n+1).
func (s *GameState) NorthRow() []int {
	n := s.N()
	row := make([]int, 0, n)
	for i := 2*n - 1; i >= n; i-- {
		row = append(row, s.Pits[i])
	}
	return row
}

// SouthRow returns player one's pits in display order, B2..B(n+1).
func (s *GameState) SouthRow() []int {
	row := make([]int, s.N())
	copy(row, s.Pits[:s.N()])
	return row
}

// FormatBoard renders the board the way a human reads it: player two's store
// on top, the two pit rows facing each other, player one's store bottom right.
func FormatBoard(s *GameState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\n", s.Store(PlayerTwo))
	for _, v := range s.NorthRow() {
		fmt.Fprintf(&sb, "%*d", cellWidth, v)
	}
	sb.WriteString("\n")
	for _, v := range s.SouthRow() {
		fmt.Fprintf(&sb, "%*d", cellWidth, v)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%*d\n", cellWidth*(s.N()+1), s.Store(PlayerOne))
	fmt.Fprintf(&sb, "Player %s to move", s.ToMove)
	return sb.String()
}
