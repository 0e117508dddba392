package main

import "github.com/brensch/kalah/analysis"

// GameSummary is one finished self-play game.
type GameSummary struct {
	GameID     string `json:"game_id"`
	TurnCount  int32  `json:"turn_count"`
	Pits       int32  `json:"pits"`
	OneTask    string `json:"one_task"`
	OneCutoff  int32  `json:"one_cutoff"`
	TwoTask    string `json:"two_task"`
	TwoCutoff  int32  `json:"two_cutoff"`
	FinalOne   int32  `json:"final_one"`
	FinalTwo   int32  `json:"final_two"`
	Winner     int32  `json:"winner"`
	Nodes      int64  `json:"nodes"`
	Source     string `json:"source"`
	SourceFile string `json:"file"`
}

type GamesResponse struct {
	Total int64         `json:"total"`
	Games []GameSummary `json:"games"`
}

type Turn struct {
	GameID    string         `json:"game_id"`
	Turn      int32          `json:"turn"`
	Player    int32          `json:"player"`
	Task      string         `json:"task"`
	Cutoff    int32          `json:"cutoff"`
	Board     analysis.Board `json:"board"`
	Moves     []string       `json:"moves"`
	Line      []string       `json:"line"`
	Random    bool           `json:"random"`
	Value     string         `json:"value"`
	Nodes     int64          `json:"nodes"`
	Cutoffs   int64          `json:"cutoffs"`
	ElapsedUs int64          `json:"elapsed_us"`
	Source    string         `json:"source"`
}

// StatsRow aggregates games by the configuration of one seat.
type StatsRow struct {
	Seat     int32   `json:"seat"`
	Task     string  `json:"task"`
	Cutoff   int32   `json:"cutoff"`
	Games    int64   `json:"games"`
	Wins     int64   `json:"wins"`
	Draws    int64   `json:"draws"`
	Losses   int64   `json:"losses"`
	AvgNodes float64 `json:"avg_nodes"`
}

type StatsResponse struct {
	Games int64      `json:"games"`
	Rows  []StatsRow `json:"rows"`
}

// DebugGameSummary represents a debug game in the list.
type DebugGameSummary struct {
	GameID    string `json:"game_id"`
	FileName  string `json:"file_name"`
	TurnCount int    `json:"turn_count"`
	OneTask   string `json:"one_task"`
	TwoTask   string `json:"two_task"`
	Winner    int32  `json:"winner"`
}

// DebugGameResponse is a full debug game with the traversal log of every
// searched turn.
type DebugGameResponse struct {
	GameID string             `json:"game_id"`
	Turns  []Turn             `json:"turns"`
	Traces map[int32][]string `json:"traces"`
}
