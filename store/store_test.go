package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brensch/kalah/executor/search"
	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/rules"
)

func sampleTurns(gameID string, n int) []TurnRow {
	rows := make([]TurnRow, n)
	for i := range rows {
		rows[i] = TurnRow{
			GameID:    gameID,
			Turn:      int32(i),
			Player:    int32(1 + i%2),
			Task:      "alphabeta",
			Cutoff:    3,
			Pits:      []int32{2, 2, 2, 2, 2, 2},
			Moves:     []int32{2},
			MoveNames: "B4",
			Line:      []int32{2, 4, 5},
			Value:     "2",
			Nodes:     77,
			FinalOne:  10,
			FinalTwo:  2,
			Winner:    1,
			Source:    "test",
		}
	}
	return rows
}

func TestWriteTurnsParquet_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "game.parquet")
	rows := sampleTurns("g1", 5)

	if err := WriteTurnsParquet(path, rows); err != nil {
		t.Fatalf("WriteTurnsParquet: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	got, err := ReadTurns(path)
	if err != nil {
		t.Fatalf("ReadTurns: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("rows=%d want=%d", len(got), len(rows))
	}
	if got[3].Turn != 3 || got[3].Player != 2 || got[3].MoveNames != "B4" || len(got[3].Line) != 3 {
		t.Fatalf("row 3 mismatch: %+v", got[3])
	}
}

func TestTurnRow_State(t *testing.T) {
	row := TurnRow{Pits: []int32{1, 0, 3, 2, 5, 2}, StoreOne: 4, StoreTwo: 7, Player: 2}
	s := row.State()
	if s.N() != 3 || s.Pits[4] != 5 || s.Store(game.PlayerOne) != 4 || s.Store(game.PlayerTwo) != 7 {
		t.Fatalf("state=%+v", s)
	}
	if s.ToMove != game.PlayerTwo {
		t.Fatalf("toMove=%s", s.ToMove)
	}
}

func TestTraceRows(t *testing.T) {
	pos, err := rules.New(game.Setup{
		Task:   game.TaskAlphaBeta,
		Player: game.PlayerOne,
		Depth:  2,
		North:  []int{2, 2, 2},
		South:  []int{2, 2, 2},
	})
	if err != nil {
		t.Fatalf("rules.New: %v", err)
	}
	res, err := search.Search(pos, search.OptionsFor(pos.Task))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	rows := TraceRows("run", res.Trace)
	if len(rows) != len(res.Trace) {
		t.Fatalf("rows=%d want=%d", len(rows), len(res.Trace))
	}
	first := rows[0]
	if first.Label != "root" || first.Value != "-Infinity" || first.Alpha != "-Infinity" || first.Beta != "Infinity" {
		t.Fatalf("first row=%+v", first)
	}

	path := filepath.Join(t.TempDir(), "trace.parquet")
	if err := WriteTraceParquet(path, rows); err != nil {
		t.Fatalf("WriteTraceParquet: %v", err)
	}
	back, err := ReadTrace(path)
	if err != nil {
		t.Fatalf("ReadTrace: %v", err)
	}
	if len(back) != len(rows) || back[len(back)-1].Seq != int32(len(rows)-1) {
		t.Fatalf("read back %d rows", len(back))
	}
}

func TestBatchWriter_RotatesEveryNGames(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter[TurnRow](dir, TurnSchema, 2)
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}

	var batches []*Batch
	for _, id := range []string{"g1", "g2", "empty", "g3"} {
		rows := sampleTurns(id, 4)
		if id == "empty" {
			rows = nil
		}
		b, err := w.AddGame(id, rows)
		if err != nil {
			t.Fatalf("AddGame %s: %v", id, err)
		}
		if b != nil {
			batches = append(batches, b)
		}
	}
	if len(batches) != 1 || w.Pending() != 1 {
		t.Fatalf("batches=%d pending=%d, want 1 and 1", len(batches), w.Pending())
	}
	first := batches[0]
	if first.Rows != 8 || len(first.GameIDs) != 2 || first.GameIDs[0] != "g1" || first.GameIDs[1] != "g2" {
		t.Fatalf("first batch %+v", first)
	}

	// Only the published shard is visible in dir; g3 is still in tmp/.
	visible, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(visible) != 1 || visible[0] != first.Path {
		t.Fatalf("visible=%v want [%s]", visible, first.Path)
	}
	if staged, _ := filepath.Glob(filepath.Join(dir, "tmp", "batch_*.parquet")); len(staged) != 1 {
		t.Fatalf("staged=%v", staged)
	}

	last, err := w.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if last == nil || last.Rows != 4 || len(last.GameIDs) != 1 || last.GameIDs[0] != "g3" || last.Path == first.Path {
		t.Fatalf("last batch %+v", last)
	}
	if staged, _ := filepath.Glob(filepath.Join(dir, "tmp", "*")); len(staged) != 0 {
		t.Fatalf("tmp not empty after flush: %v", staged)
	}

	got, err := ReadTurns(first.Path)
	if err != nil {
		t.Fatalf("ReadTurns: %v", err)
	}
	if len(got) != 8 || got[0].GameID != "g1" || got[7].GameID != "g2" {
		t.Fatalf("read %d rows", len(got))
	}
}

func TestBatchWriter_FlushWithNothingOpen(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter[TurnRow](dir, TurnSchema, 5)
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	if b, err := w.AddGame("empty", nil); b != nil || err != nil {
		t.Fatalf("empty game: batch=%v err=%v", b, err)
	}
	if b, err := w.Flush(); b != nil || err != nil {
		t.Fatalf("flush: batch=%v err=%v", b, err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*", "*.parquet"))
	top, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(matches)+len(top) != 0 {
		t.Fatalf("unexpected files: %v %v", matches, top)
	}
}

func TestNewBatchWriter_Errors(t *testing.T) {
	if _, err := NewBatchWriter[TurnRow]("", TurnSchema, 1); err == nil {
		t.Fatalf("empty dir accepted")
	}
	if _, err := NewBatchWriter[TurnRow](t.TempDir(), TurnSchema, 0); err == nil {
		t.Fatalf("zero games per batch accepted")
	}
}

func TestWriteTurnsBatchAtomic(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteTurnsBatchAtomic(dir, sampleTurns("g2", 2))
	if err != nil {
		t.Fatalf("WriteTurnsBatchAtomic: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("path %s not in %s", path, dir)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "tmp", "*"))
	if len(leftovers) != 0 {
		t.Fatalf("tmp not empty: %v", leftovers)
	}
}

func TestGameLog_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.log")
	l, err := OpenGameLog(path)
	if err != nil {
		t.Fatalf("OpenGameLog: %v", err)
	}
	if err := l.AddMany([]string{"a", "b", "", "a"}); err != nil {
		t.Fatalf("AddMany: %v", err)
	}
	if l.Count() != 2 || !l.Has("b") {
		t.Fatalf("count=%d", l.Count())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	l, err = OpenGameLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	if l.Count() != 2 || !l.Has("a") {
		t.Fatalf("reopened count=%d", l.Count())
	}
}
