package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brensch/kalah/store"
)

const traceSuffix = "_trace.parquet"

// listDebugGames returns the debug games written into dir. A missing dir is
// an empty list.
func listDebugGames(dir string) ([]DebugGameSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DebugGameSummary{}, nil
		}
		return nil, err
	}

	games := make([]DebugGameSummary, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".parquet") || strings.HasSuffix(name, traceSuffix) {
			continue
		}

		rows, err := store.ReadTurns(filepath.Join(dir, name))
		if err != nil || len(rows) == 0 {
			continue // Skip invalid files
		}
		summary := DebugGameSummary{
			GameID:    rows[0].GameID,
			FileName:  name,
			TurnCount: len(rows),
			Winner:    rows[0].Winner,
		}
		for _, r := range rows {
			switch {
			case r.Player == 1 && summary.OneTask == "":
				summary.OneTask = r.Task
			case r.Player == 2 && summary.TwoTask == "":
				summary.TwoTask = r.Task
			}
		}
		games = append(games, summary)
	}

	return games, nil
}

// loadDebugGame loads a debug game and, when present, its trace file.
func loadDebugGame(dir, gameID string) (*DebugGameResponse, error) {
	if gameID == "" || strings.ContainsAny(gameID, `/\`) || strings.Contains(gameID, "..") {
		return nil, os.ErrNotExist
	}

	turnsPath := filepath.Join(dir, gameID+".parquet")
	if _, err := os.Stat(turnsPath); err != nil {
		return nil, err
	}
	rows, err := store.ReadTurns(turnsPath)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, os.ErrNotExist
	}

	resp := &DebugGameResponse{
		GameID: rows[0].GameID,
		Turns:  make([]Turn, 0, len(rows)),
		Traces: map[int32][]string{},
	}
	for _, row := range rows {
		resp.Turns = append(resp.Turns, turnFromRow(row))
	}

	tracePath := filepath.Join(dir, gameID+traceSuffix)
	if _, err := os.Stat(tracePath); errors.Is(err, os.ErrNotExist) {
		return resp, nil
	}
	trace, err := store.ReadTrace(tracePath)
	if err != nil {
		return nil, err
	}
	prefix := gameID + "/"
	for _, tr := range trace {
		turn, err := strconv.Atoi(strings.TrimPrefix(tr.RunID, prefix))
		if err != nil || !strings.HasPrefix(tr.RunID, prefix) {
			continue
		}
		resp.Traces[int32(turn)] = append(resp.Traces[int32(turn)], traceLine(tr))
	}
	return resp, nil
}

// traceLine renders a stored record the way the traversal log prints it.
func traceLine(r store.TraceRow) string {
	fields := []string{r.Label, strconv.Itoa(int(r.Depth)), r.Value}
	if r.Alpha != "" || r.Beta != "" {
		fields = append(fields, r.Alpha, r.Beta)
	}
	return strings.Join(fields, ",")
}
