package selfplay

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/brensch/kalah/executor/search"
	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/store"
)

// DebugProgress is passed to the progress callback after each turn.
type DebugProgress struct {
	Turn   int32
	Player int32
	Moves  string
	Value  string
	Nodes  int64
	Board  string
}

// DebugGameResult holds one fully traced game.
type DebugGameResult struct {
	GameID string
	Turns  []store.TurnRow
	// Trace holds every search's traversal log, keyed by TraceRunID.
	Trace  []store.TraceRow
	Result GameResult
}

// TraceRunID names the trace of one decision inside a debug game.
func TraceRunID(gameID string, turn int32) string {
	return fmt.Sprintf("%s/%d", gameID, turn)
}

// PlayDebugGame plays a game with tracing enabled on every search. The
// optional onProgress callback is called after each turn completes.
func PlayDebugGame(ctx context.Context, cfg Config, rng *rand.Rand, onProgress func(DebugProgress)) (*DebugGameResult, error) {
	var trace []store.TraceRow
	hook := func(row *store.TurnRow, next *game.GameState, res *search.Result) {
		if res != nil {
			trace = append(trace, store.TraceRows(TraceRunID(row.GameID, row.Turn), res.Trace)...)
		}
		if onProgress != nil {
			onProgress(DebugProgress{
				Turn:   row.Turn,
				Player: row.Player,
				Moves:  row.MoveNames,
				Value:  row.Value,
				Nodes:  row.Nodes,
				Board:  RenderBoard(int(row.Turn), next),
			})
		}
	}

	rows, result, err := play(ctx, cfg, rng, true, hook)
	if err != nil {
		return nil, err
	}
	return &DebugGameResult{
		GameID: result.GameID,
		Turns:  rows,
		Trace:  trace,
		Result: result,
	}, nil
}

// WriteDebugGameParquet writes the turns and the traces of a debug game as
// two files in outDir, named after the game.
func WriteDebugGameParquet(outDir string, result *DebugGameResult) (turnsPath, tracePath string, err error) {
	turnsPath = filepath.Join(outDir, result.GameID+".parquet")
	tracePath = filepath.Join(outDir, result.GameID+"_trace.parquet")
	if err := store.WriteTurnsParquet(turnsPath, result.Turns); err != nil {
		return "", "", err
	}
	if err := store.WriteTraceParquet(tracePath, result.Trace); err != nil {
		return "", "", err
	}
	return turnsPath, tracePath, nil
}
