package taskio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brensch/kalah/executor/search"
	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/rules"
)

const sampleInput = `3
1
3
2 2 2
2 2 2
0
0
`

func TestReadSetup(t *testing.T) {
	setup, err := ReadSetup(strings.NewReader(sampleInput))
	if err != nil {
		t.Fatalf("ReadSetup: %v", err)
	}
	if setup.Task != game.TaskAlphaBeta || setup.Player != game.PlayerOne || setup.Depth != 3 {
		t.Fatalf("header: %+v", setup)
	}
	if len(setup.North) != 3 || len(setup.South) != 3 || setup.NorthStore != 0 || setup.SouthStore != 0 {
		t.Fatalf("board: %+v", setup)
	}
}

func TestReadSetup_CompetitionAndSharedHeaderLine(t *testing.T) {
	in := "4 2 123.5\n\n1 2 3 4\n5 6 7 8\n9 10\n"
	setup, err := ReadSetup(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadSetup: %v", err)
	}
	if setup.Task != game.TaskCompetition || setup.Player != game.PlayerTwo {
		t.Fatalf("header: %+v", setup)
	}
	if setup.TimeLeft != 123.5 || setup.Depth != 0 {
		t.Fatalf("time=%v depth=%d", setup.TimeLeft, setup.Depth)
	}
	if setup.North[0] != 1 || setup.South[3] != 8 || setup.NorthStore != 9 || setup.SouthStore != 10 {
		t.Fatalf("board: %+v", setup)
	}
}

func TestReadSetup_Malformed(t *testing.T) {
	cases := map[string]string{
		"short header": "3\n1\n",
		"one row":      "3\n1\n3\n2 2 2\n",
		"bad number":   "3\n1\n3\n2 x 2\n2 2 2\n0\n0\n",
		"bad task":     "7\n1\n3\n2 2 2\n2 2 2\n0\n0\n",
		"three stores": "3\n1\n3\n2 2 2\n2 2 2\n0\n0\n0\n",
		"bad depth":    "2\n1\nthree\n2 2 2\n2 2 2\n0\n0\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadSetup(strings.NewReader(in)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("err=%v want ErrMalformed", err)
			}
		})
	}
}

func TestWriteState(t *testing.T) {
	s := &game.GameState{Pits: []int{2, 2, 0, 3, 2, 2}, Stores: [2]int{1, 0}, ToMove: game.PlayerTwo}
	var buf bytes.Buffer
	if err := WriteState(&buf, s); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if got, want := buf.String(), "2 2 3\n2 2 0\n0\n1\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestWriteTrace_Headers(t *testing.T) {
	entries := []search.TraceEntry{{Label: "root", Depth: 0, Value: search.NegInf}}
	cases := []struct {
		task game.Task
		want string
	}{
		{game.TaskGreedy, "root,0,-Infinity\n"},
		{game.TaskMinimax, "Node,Depth,Value\nroot,0,-Infinity\n"},
		{game.TaskAlphaBeta, "Node,Depth,Value,Alpha,Beta\nroot,0,-Infinity\n"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if err := WriteTrace(&buf, tc.task, entries); err != nil {
			t.Fatalf("WriteTrace: %v", err)
		}
		if buf.String() != tc.want {
			t.Fatalf("task %s: got %q want %q", tc.task, buf.String(), tc.want)
		}
	}
}

func TestWriteResult_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(inPath, []byte(sampleInput), 0o644); err != nil {
		t.Fatal(err)
	}
	setup, err := ReadSetupFile(inPath)
	if err != nil {
		t.Fatalf("ReadSetupFile: %v", err)
	}
	pos, err := rules.New(setup)
	if err != nil {
		t.Fatalf("rules.New: %v", err)
	}
	res, err := search.Search(pos, search.OptionsFor(pos.Task))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	paths, err := WriteResult(dir, pos.Task, res)
	if err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths=%v", paths)
	}

	next, err := os.ReadFile(filepath.Join(dir, NextStateFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(next) != "2 2 3\n2 2 0\n0\n1\n" {
		t.Fatalf("next_state=%q", next)
	}

	log, err := os.ReadFile(filepath.Join(dir, TraceFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(log), "\n"), "\n")
	if lines[0] != "Node,Depth,Value,Alpha,Beta" || len(lines) != 154 {
		t.Fatalf("trace header=%q lines=%d", lines[0], len(lines))
	}
	if _, err := os.Stat(filepath.Join(dir, MovesFile)); !os.IsNotExist(err) {
		t.Fatalf("alpha-beta should not write %s", MovesFile)
	}
}

func TestWriteResult_Competition(t *testing.T) {
	dir := t.TempDir()
	pos, err := rules.New(game.Setup{
		Task:     game.TaskCompetition,
		Player:   game.PlayerOne,
		TimeLeft: 100,
		North:    []int{1, 1, 1},
		South:    []int{1, 1, 1},
	})
	if err != nil {
		t.Fatalf("rules.New: %v", err)
	}
	res, err := search.Search(pos, search.OptionsFor(pos.Task))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := WriteResult(dir, pos.Task, res); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	out, err := os.ReadFile(filepath.Join(dir, MovesFile))
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Fields(string(out))
	if len(got) != len(res.Moves) {
		t.Fatalf("output.txt=%q moves=%v", out, res.MoveNames())
	}
	for _, name := range got {
		if _, err := game.ParsePitName(3, name); err != nil || name[0] != 'B' {
			t.Fatalf("bad move label %q", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, NextStateFile)); !os.IsNotExist(err) {
		t.Fatalf("competition should not write %s", NextStateFile)
	}
}

func TestWriteFileAtomic_FailureLeavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	boom := errors.New("boom")
	err := WriteFileAtomic(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file exists after failed write")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}
