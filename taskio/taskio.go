// Package taskio reads decision requests from task files and renders search
// results into the files graders and match runners consume.
package taskio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brensch/kalah/executor/search"
	"github.com/brensch/kalah/game"
)

// Output file names.
const (
	NextStateFile = "next_state.txt"
	TraceFile     = "traverse_log.txt"
	MovesFile     = "output.txt"
)

var ErrMalformed = errors.New("malformed task file")

// ReadSetup parses a task file: task code, player and the depth budget (or,
// for competition, the seconds left), followed by player two's pit row,
// player one's pit row, player two's store and player one's store.
//
// The three header values may share a line. Each pit row must sit on a line
// of its own.
func ReadSetup(r io.Reader) (game.Setup, error) {
	var setup game.Setup
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var header []string
	var rows [][]int
	var stores []int
	lineNo := 0

	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		for len(fields) > 0 && len(header) < 3 {
			header = append(header, fields[0])
			fields = fields[1:]
		}
		if len(fields) == 0 {
			continue
		}
		if len(rows) < 2 {
			row, err := parseInts(fields)
			if err != nil {
				return setup, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			rows = append(rows, row)
			continue
		}
		vals, err := parseInts(fields)
		if err != nil {
			return setup, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
		stores = append(stores, vals...)
	}
	if err := sc.Err(); err != nil {
		return setup, fmt.Errorf("read task file: %w", err)
	}

	if len(header) < 3 {
		return setup, fmt.Errorf("%w: want task, player and depth, got %d values", ErrMalformed, len(header))
	}
	if len(rows) < 2 {
		return setup, fmt.Errorf("%w: want two pit rows, got %d", ErrMalformed, len(rows))
	}
	if len(stores) != 2 {
		return setup, fmt.Errorf("%w: want two store values, got %d", ErrMalformed, len(stores))
	}

	task, err := game.ParseTask(header[0])
	if err != nil {
		return setup, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	player, err := strconv.Atoi(header[1])
	if err != nil {
		return setup, fmt.Errorf("%w: player %q", ErrMalformed, header[1])
	}

	setup.Task = task
	setup.Player = game.Player(player)
	if task == game.TaskCompetition {
		setup.TimeLeft, err = strconv.ParseFloat(header[2], 64)
		if err != nil {
			return setup, fmt.Errorf("%w: time left %q", ErrMalformed, header[2])
		}
	} else {
		setup.Depth, err = strconv.Atoi(header[2])
		if err != nil {
			return setup, fmt.Errorf("%w: depth %q", ErrMalformed, header[2])
		}
	}
	setup.North = rows[0]
	setup.South = rows[1]
	setup.NorthStore = stores[0]
	setup.SouthStore = stores[1]
	return setup, nil
}

// ReadSetupFile opens and parses path.
func ReadSetupFile(path string) (game.Setup, error) {
	f, err := os.Open(path)
	if err != nil {
		return game.Setup{}, err
	}
	defer f.Close()
	setup, err := ReadSetup(f)
	if err != nil {
		return setup, fmt.Errorf("%s: %w", path, err)
	}
	return setup, nil
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// WriteState renders a board as four lines: player two's row (A2 first),
// player one's row (B2 first), player two's store, player one's store.
func WriteState(w io.Writer, s *game.GameState) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n%d\n%d\n",
		joinInts(s.NorthRow()), joinInts(s.SouthRow()),
		s.Store(game.PlayerTwo), s.Store(game.PlayerOne))
	return err
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, " ")
}

// TraceHeader is the first line of the traversal log, or "" when the task
// writes none.
func TraceHeader(task game.Task) string {
	switch task {
	case game.TaskMinimax:
		return "Node,Depth,Value"
	case game.TaskAlphaBeta:
		return "Node,Depth,Value,Alpha,Beta"
	}
	return ""
}

func WriteTrace(w io.Writer, task game.Task, trace []search.TraceEntry) error {
	bw := bufio.NewWriter(w)
	if h := TraceHeader(task); h != "" {
		bw.WriteString(h)
		bw.WriteByte('\n')
	}
	for _, e := range trace {
		bw.WriteString(e.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteMoves writes one pit label per line.
func WriteMoves(w io.Writer, names []string) error {
	for _, name := range names {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

// WriteFileAtomic renders into a temp file next to path and renames it into
// place once fill succeeds.
func WriteFileAtomic(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmpPath, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// WriteResult writes the files a task produces into dir and returns their
// paths. Competition writes only the chosen moves; every other task writes
// the next state and the traversal log.
func WriteResult(dir string, task game.Task, res *search.Result) ([]string, error) {
	if task == game.TaskCompetition {
		path := filepath.Join(dir, MovesFile)
		err := WriteFileAtomic(path, func(w io.Writer) error {
			return WriteMoves(w, res.MoveNames())
		})
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	next := filepath.Join(dir, NextStateFile)
	if err := WriteFileAtomic(next, func(w io.Writer) error {
		return WriteState(w, res.Next)
	}); err != nil {
		return nil, err
	}
	trace := filepath.Join(dir, TraceFile)
	if err := WriteFileAtomic(trace, func(w io.Writer) error {
		return WriteTrace(w, task, res.Trace)
	}); err != nil {
		return nil, err
	}
	return []string{next, trace}, nil
}
