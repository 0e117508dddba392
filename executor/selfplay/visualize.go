// visualize.go - Console visualization for debugging self-play games.
package selfplay

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/brensch/kalah/game"
)

// PrintBoard logs a labelled board after the given turn.
func PrintBoard(turn int, state *game.GameState) {
	log.Print(RenderBoard(turn, state))
}

// RenderBoard is PrintBoard without the logging: the pit labels frame the
// usual board layout so moves in the logs can be matched to pits.
func RenderBoard(turn int, state *game.GameState) string {
	n := state.N()
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n=== TRACE Turn %d (to move: %s) ===\n", turn, state.ToMove)

	writeLabels(&sb, n, func(i int) string { return game.PitName(n, 2*n-1-i) })
	sb.WriteString(game.FormatBoard(state))
	sb.WriteString("\n")
	writeLabels(&sb, n, func(i int) string { return game.PitName(n, i) })
	return sb.String()
}

func writeLabels(w io.Writer, n int, label func(i int) string) {
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%5s", label(i))
	}
	fmt.Fprintln(w)
}
