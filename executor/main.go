package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/kalah/executor/selfplay"
	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/logging"
	"github.com/brensch/kalah/store"
)

var totalMoves atomic.Int64
var totalNodes atomic.Int64
var totalGames atomic.Int64

type GameUpdate struct {
	WorkerID int
	Result   selfplay.GameResult
	Rows     int
}

type gameWriteRequest struct {
	gameID string
	rows   []store.TurnRow
}

func main() {
	// Flag defaults read the environment, so .env has to be loaded first.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "err", err)
	}

	outDir := flag.String("out-dir", getEnvOrDefault("OUT_DIR", "data/generated"), "Output directory for self-play parquet batches")
	workers := flag.Int("workers", getEnvIntOrDefault("WORKERS", runtime.NumCPU()), "Number of self-play workers")
	gamesPerFlush := flag.Int("games-per-flush", getEnvIntOrDefault("GAMES_PER_FLUSH", 200), "Number of games per parquet batch file")
	maxGames := flag.Int64("max-games", int64(getEnvIntOrDefault("MAX_GAMES", 0)), "If > 0, stop once this many games exist (previous runs included)")
	gameLogPath := flag.String("game-log", getEnvOrDefault("GAME_LOG", ""), "Append-only log of written game IDs (default <out-dir>/written_games.log)")

	oneTask := flag.String("one-task", getEnvOrDefault("ONE_TASK", "alphabeta"), "Task for player one (greedy, minimax, alphabeta, competition)")
	oneDepth := flag.Int("one-depth", getEnvIntOrDefault("ONE_DEPTH", 4), "Depth budget for player one")
	twoTask := flag.String("two-task", getEnvOrDefault("TWO_TASK", "competition"), "Task for player two")
	twoDepth := flag.Int("two-depth", getEnvIntOrDefault("TWO_DEPTH", 4), "Depth budget for player two")
	pits := flag.Int("pits", getEnvIntOrDefault("PITS", 6), "Pits per side")
	seeds := flag.Int("seeds", getEnvIntOrDefault("SEEDS", 4), "Seeds per pit at the start")
	randomPlies := flag.Int("random-plies", getEnvIntOrDefault("RANDOM_PLIES", 2), "Opening decisions played at random")

	useTUI := flag.Bool("tui", getEnvBoolOrDefault("TUI", false), "Show a live progress view instead of log lines")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", "text"), "Log format: text, json or pretty")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	logOut := os.Stderr
	if *useTUI {
		// Keep log lines from tearing the TUI.
		f, err := os.OpenFile(filepath.Join(os.TempDir(), "kalah-executor.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			fatal("open log file", err)
		}
		defer f.Close()
		logOut = f
	}
	if _, err := logging.Setup(logOut, *logFormat, *logLevel); err != nil {
		fatal("configure logging", err)
	}

	cfg, err := buildConfig(*oneTask, *oneDepth, *twoTask, *twoDepth, *pits, *seeds, *randomPlies)
	if err != nil {
		fatal("invalid configuration", err)
	}

	if *gameLogPath == "" {
		*gameLogPath = filepath.Join(*outDir, "written_games.log")
	}
	gameLog, err := store.OpenGameLog(*gameLogPath)
	if err != nil {
		fatal("open game log", err)
	}
	defer gameLog.Close()
	totalGames.Store(int64(gameLog.Count()))

	if *maxGames > 0 && totalGames.Load() >= *maxGames {
		slog.Info("target already reached", "games", totalGames.Load(), "max_games", *maxGames)
		return
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	slog.Info("starting self-play",
		"workers", *workers,
		"out_dir", *outDir,
		"one", fmt.Sprintf("%s/%d", cfg.One.Task, cfg.One.Depth),
		"two", fmt.Sprintf("%s/%d", cfg.Two.Task, cfg.Two.Depth),
		"pits", cfg.Pits,
		"seeds", cfg.Seeds,
		"existing_games", totalGames.Load(),
	)

	updates := make(chan GameUpdate, *workers)
	writeReqs := make(chan gameWriteRequest, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(*outDir, *gamesPerFlush, gameLog, writeReqs)
		close(writerDone)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *workers; i++ {
		workerID := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)*1000003))
			onTurn := func() { totalMoves.Add(1) }
			for gctx.Err() == nil {
				rows, result, err := selfplay.PlayGame(gctx, workerID, cfg, rng, onTurn)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("worker %d: %w", workerID, err)
				}
				totalNodes.Add(result.Nodes)
				total := totalGames.Add(1)
				if *maxGames > 0 && total >= *maxGames {
					cancel()
				}

				writeReqs <- gameWriteRequest{gameID: result.GameID, rows: rows}
				select {
				case updates <- GameUpdate{WorkerID: workerID, Result: result, Rows: len(rows)}:
				default:
				}
			}
			return nil
		})
	}

	workersDone := make(chan struct{})
	var workersErr error
	go func() {
		workersErr = g.Wait()
		close(writeReqs)
		<-writerDone
		close(workersDone)
	}()

	if *useTUI {
		p := tea.NewProgram(initialModel(updates, workersDone), tea.WithAltScreen())
		final, err := p.Run()
		if err != nil {
			slog.Error("tui failed", "err", err)
		}
		if m, ok := final.(model); !ok || !m.done {
			cancel()
		}
		<-workersDone
		reportShutdown(workersErr)
		return
	}

	startTime := time.Now()
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-workersDone:
			reportShutdown(workersErr)
			return
		case update := <-updates:
			slog.Debug("game finished",
				"worker", update.WorkerID,
				"game_id", update.Result.GameID,
				"winner", int(update.Result.Winner),
				"stores", fmt.Sprintf("%d-%d", update.Result.StoreOne, update.Result.StoreTwo),
				"turns", update.Result.Turns,
			)
		case <-ticker.C:
			secs := time.Since(startTime).Seconds()
			slog.Info("stats",
				"games", totalGames.Load(),
				"moves_per_sec", fmt.Sprintf("%.1f", float64(totalMoves.Load())/secs),
				"nodes_per_sec", fmt.Sprintf("%.0f", float64(totalNodes.Load())/secs),
			)
		}
	}
}

func reportShutdown(err error) {
	if err != nil {
		slog.Error("self-play stopped", "err", err, "games", totalGames.Load())
		os.Exit(1)
	}
	slog.Info("shutdown complete: final parquet flush done", "games", totalGames.Load())
}

func buildConfig(oneTask string, oneDepth int, twoTask string, twoDepth int, pits, seeds, randomPlies int) (selfplay.Config, error) {
	t1, err := game.ParseTask(oneTask)
	if err != nil {
		return selfplay.Config{}, fmt.Errorf("player one: %w", err)
	}
	t2, err := game.ParseTask(twoTask)
	if err != nil {
		return selfplay.Config{}, fmt.Errorf("player two: %w", err)
	}
	cfg := selfplay.Config{
		One:         selfplay.PlayerConfig{Task: t1, Depth: oneDepth},
		Two:         selfplay.PlayerConfig{Task: t2, Depth: twoDepth},
		Pits:        pits,
		Seeds:       seeds,
		RandomPlies: randomPlies,
		Source:      "selfplay",
	}
	return cfg, cfg.Validate()
}

// parquetWriterLoop streams finished games into batch files of gamesPerFlush
// games each. Game IDs are logged only once their batch is in outDir.
func parquetWriterLoop(outDir string, gamesPerFlush int, gameLog *store.GameLog, in <-chan gameWriteRequest) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 200
	}

	w, err := store.NewBatchWriter[store.TurnRow](outDir, store.TurnSchema, gamesPerFlush)
	if err != nil {
		slog.Error("open batch writer", "err", err)
		for range in {
		}
		return
	}

	published := func(b *store.Batch, final bool) {
		if b == nil {
			return
		}
		if err := gameLog.AddMany(b.GameIDs); err != nil {
			slog.Error("game log append failed", "err", err)
		}
		slog.Info("parquet flush ok", "path", b.Path, "games", len(b.GameIDs), "rows", b.Rows, "final", final)
	}

	for req := range in {
		b, err := w.AddGame(req.gameID, req.rows)
		if err != nil {
			slog.Error("parquet write failed", "game_id", req.gameID, "err", err)
			continue
		}
		published(b, false)
	}

	b, err := w.Flush()
	if err != nil {
		slog.Error("parquet flush failed", "final", true, "err", err)
		return
	}
	published(b, true)
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
