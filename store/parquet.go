package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/kalah/executor/search"
	"github.com/brensch/kalah/game"
)

const (
	TurnSchema  = "kalah_turn_v1"
	TraceSchema = "kalah_trace_v1"
)

// TurnRow is a single self-play decision intended for long-term storage.
//
// Pits is the ring before the decision, player one's pits first. Moves are
// the ring indices committed this turn (more than one after extra turns);
// Line is the full principal variation the search returned.
//
// FinalOne, FinalTwo and Winner describe the finished game and are repeated
// on every row so a single turn can be scored without a join. Winner is 0
// on a draw.
type TurnRow struct {
	GameID string `parquet:"game_id,dict"`
	Turn   int32  `parquet:"turn"`
	Player int32  `parquet:"player"`
	Task   string `parquet:"task,dict"`
	Cutoff int32  `parquet:"cutoff"`

	Pits     []int32 `parquet:"pits"`
	StoreOne int32   `parquet:"store_one"`
	StoreTwo int32   `parquet:"store_two"`

	Moves     []int32 `parquet:"moves"`
	MoveNames string  `parquet:"move_names"`
	Line      []int32 `parquet:"line"`
	Random    bool    `parquet:"random"`

	Value     string `parquet:"value,dict"`
	Nodes     int64  `parquet:"nodes"`
	Cutoffs   int64  `parquet:"cutoffs"`
	ElapsedUs int64  `parquet:"elapsed_us"`

	FinalOne int32 `parquet:"final_one"`
	FinalTwo int32 `parquet:"final_two"`
	Winner   int32 `parquet:"winner"`

	Source string `parquet:"source,dict"`
}

// State rebuilds the position the row was decided from.
func (r TurnRow) State() *game.GameState {
	s := &game.GameState{
		Pits:   make([]int, len(r.Pits)),
		Stores: [2]int{int(r.StoreOne), int(r.StoreTwo)},
		ToMove: game.Player(r.Player),
	}
	for i, v := range r.Pits {
		s.Pits[i] = int(v)
	}
	return s
}

// TraceRow is one traversal log record.
type TraceRow struct {
	RunID string `parquet:"run_id,dict"`
	Seq   int32  `parquet:"seq"`
	Label string `parquet:"label,dict"`
	Depth int32  `parquet:"depth"`
	Value string `parquet:"value,dict"`
	Alpha string `parquet:"alpha,dict,optional"`
	Beta  string `parquet:"beta,dict,optional"`
}

// TraceRows converts a search trace for storage. Alpha and Beta are left
// empty for traces recorded without pruning.
func TraceRows(runID string, trace []search.TraceEntry) []TraceRow {
	rows := make([]TraceRow, len(trace))
	for i, e := range trace {
		rows[i] = TraceRow{
			RunID: runID,
			Seq:   int32(i),
			Label: e.Label,
			Depth: int32(e.Depth),
			Value: e.Value.String(),
		}
		if e.Bounds {
			rows[i].Alpha = e.Alpha.String()
			rows[i].Beta = e.Beta.String()
		}
	}
	return rows
}

func Int32s(v []int) []int32 {
	out := make([]int32, len(v))
	for i, x := range v {
		out[i] = int32(x)
	}
	return out
}

// MoveLabel joins pit labels the way they are shown in logs.
func MoveLabel(n int, moves []int) string {
	return strings.Join(game.PitNames(n, moves), ",")
}

func WriteTurnsParquet(outPath string, rows []TurnRow) error {
	return writeParquetAtomic(outPath, rows, TurnSchema)
}

func WriteTraceParquet(outPath string, rows []TraceRow) error {
	return writeParquetAtomic(outPath, rows, TraceSchema)
}

func writeParquetAtomic[T any](outPath string, rows []T, schema string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Write to a temp file and rename atomically.
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writerOptions(schema)...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

func writerOptions(schema string) []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	}
}

var batchSeq atomic.Uint64

// batchName is unique within the process and sorts by creation time.
func batchName() string {
	return fmt.Sprintf("batch_%d_%d.parquet", time.Now().UnixNano(), batchSeq.Add(1))
}

// WriteTurnsBatchAtomic writes rows into outDir/tmp and then moves the file
// into outDir, so readers globbing outDir never see a partial file.
func WriteTurnsBatchAtomic(outDir string, rows []TurnRow) (string, error) {
	name := batchName()
	tmpPath := filepath.Join(outDir, "tmp", name)
	if err := WriteTurnsParquet(tmpPath, rows); err != nil {
		return "", err
	}
	finalPath := filepath.Join(outDir, name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

func ReadTurns(path string) ([]TurnRow, error) {
	rows, err := parquet.ReadFile[TurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func ReadTrace(path string) ([]TraceRow, error) {
	rows, err := parquet.ReadFile[TraceRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
