package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/brensch/kalah/analysis"
	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/store"
)

func withCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < 0 {
		return def
	}
	return n
}

func pitNames32(n int, pits []int32) []string {
	out := make([]string, len(pits))
	for i, p := range pits {
		out[i] = game.PitName(n, int(p))
	}
	return out
}

func turnFromRow(r store.TurnRow) Turn {
	n := len(r.Pits) / 2
	return Turn{
		GameID:    r.GameID,
		Turn:      r.Turn,
		Player:    r.Player,
		Task:      r.Task,
		Cutoff:    r.Cutoff,
		Board:     analysis.BoardFromState(r.State()),
		Moves:     pitNames32(n, r.Moves),
		Line:      pitNames32(n, r.Line),
		Random:    r.Random,
		Value:     r.Value,
		Nodes:     r.Nodes,
		Cutoffs:   r.Cutoffs,
		ElapsedUs: r.ElapsedUs,
		Source:    r.Source,
	}
}

func asInt32Slice(v any) []int32 {
	if v == nil {
		return nil
	}
	switch vv := v.(type) {
	case []int32:
		return vv
	case []int64:
		out := make([]int32, 0, len(vv))
		for _, x := range vv {
			out = append(out, int32(x))
		}
		return out
	case []any:
		out := make([]int32, 0, len(vv))
		for _, x := range vv {
			out = append(out, int32(asInt64(x)))
		}
		return out
	default:
		return nil
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
