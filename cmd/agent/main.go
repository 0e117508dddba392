// Command agent answers a single Kalah decision request: it reads a task
// file, searches the position and writes the result files next to it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/brensch/kalah/executor/search"
	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/logging"
	"github.com/brensch/kalah/rules"
	"github.com/brensch/kalah/store"
	"github.com/brensch/kalah/taskio"
)

func main() {
	cmd := &cli.Command{
		Name:  "agent",
		Usage: "search one Kalah position and write the decision files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Value:   "input.txt",
				Usage:   "task file to read",
				Sources: cli.EnvVars("KALAH_INPUT"),
			},
			&cli.StringFlag{
				Name:    "out-dir",
				Value:   ".",
				Usage:   "directory for next_state.txt, traverse_log.txt or output.txt",
				Sources: cli.EnvVars("KALAH_OUT_DIR"),
			},
			&cli.StringFlag{
				Name:    "trace-parquet",
				Usage:   "optional parquet copy of the traversal log",
				Sources: cli.EnvVars("KALAH_TRACE_PARQUET"),
			},
			&cli.DurationFlag{
				Name:    "panic-time",
				Value:   2 * time.Second,
				Usage:   "competition: below this much time left, search one turn deep",
				Sources: cli.EnvVars("KALAH_PANIC_TIME"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "log format: text, json or pretty",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("agent failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if _, err := logging.Setup(os.Stderr, cmd.String("log-format"), cmd.String("log-level")); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	setup, err := taskio.ReadSetupFile(cmd.String("input"))
	if err != nil {
		return fmt.Errorf("read task: %w", err)
	}
	pos, err := rules.New(setup)
	if err != nil {
		return fmt.Errorf("build position: %w", err)
	}

	panicTime := cmd.Duration("panic-time")
	if pos.Task == game.TaskCompetition && setup.TimeLeft < panicTime.Seconds() {
		slog.Warn("short on time, searching one turn deep",
			"time_left", setup.TimeLeft,
			"panic_time", panicTime.String(),
			"adaptive_cutoff", pos.Cutoff,
		)
		pos.Cutoff = 1
	}

	slog.Info("position",
		"task", pos.Task.String(),
		"player", pos.State.ToMove.String(),
		"cutoff", pos.Cutoff,
		"board", "\n"+game.FormatBoard(pos.State),
	)

	res, err := search.Search(pos, search.OptionsFor(pos.Task))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	written, err := taskio.WriteResult(cmd.String("out-dir"), pos.Task, res)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if path := cmd.String("trace-parquet"); path != "" && len(res.Trace) > 0 {
		runID := uuid.NewString()
		if err := store.WriteTraceParquet(path, store.TraceRows(runID, res.Trace)); err != nil {
			return fmt.Errorf("write trace parquet: %w", err)
		}
		slog.Info("trace parquet written", "path", path, "run_id", runID, "rows", len(res.Trace))
	}

	slog.Info("moves "+strings.Join(res.MoveNames(), " "),
		"value", res.Value.String(),
		"files", written,
		slog.Group("stats",
			"nodes", res.Stats.Nodes,
			"leaves", res.Stats.Leaves,
			"decided", res.Stats.Decided,
			"cutoffs", res.Stats.Cutoffs,
			"max_depth", res.Stats.MaxDepth,
			"elapsed", res.Elapsed.String(),
		),
	)
	return nil
}
