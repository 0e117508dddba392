package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/brensch/kalah/executor/selfplay"
	"github.com/brensch/kalah/game"
	"github.com/brensch/kalah/logging"
)

func main() {
	outDir := flag.String("out-dir", "debug_games", "Output directory for debug games")
	oneTask := flag.String("one-task", "alphabeta", "Task for player one")
	oneDepth := flag.Int("one-depth", 4, "Depth budget for player one")
	twoTask := flag.String("two-task", "minimax", "Task for player two")
	twoDepth := flag.Int("two-depth", 3, "Depth budget for player two")
	pits := flag.Int("pits", 6, "Pits per side")
	seeds := flag.Int("seeds", 4, "Seeds per pit at the start")
	randomPlies := flag.Int("random-plies", 0, "Opening decisions played at random")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	frontendHost := flag.String("frontend", "http://localhost:5173", "Frontend base URL")
	logFormat := flag.String("log-format", "text", "Log format: text, json or pretty")
	flag.Parse()

	if _, err := logging.Setup(os.Stderr, *logFormat, "info"); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	t1, err := game.ParseTask(*oneTask)
	if err != nil {
		log.Fatalf("Player one: %v", err)
	}
	t2, err := game.ParseTask(*twoTask)
	if err != nil {
		log.Fatalf("Player two: %v", err)
	}
	cfg := selfplay.Config{
		One:         selfplay.PlayerConfig{Task: t1, Depth: *oneDepth},
		Two:         selfplay.PlayerConfig{Task: t2, Depth: *twoDepth},
		Pits:        *pits,
		Seeds:       *seeds,
		RandomPlies: *randomPlies,
		Source:      "debug",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Printf("Generating debug game: P1 %s/%d vs P2 %s/%d on %d pits x %d seeds",
		t1, *oneDepth, t2, *twoDepth, *pits, *seeds)

	onProgress := func(p selfplay.DebugProgress) {
		value := p.Value
		if value == "" {
			value = "random"
		}
		fmt.Printf("  Turn %3d | P%d | %-12s | %8s | %6d nodes\n", p.Turn, p.Player, p.Moves, value, p.Nodes)
		fmt.Print(p.Board)
	}

	result, err := selfplay.PlayDebugGame(ctx, cfg, rand.New(rand.NewSource(*seed)), onProgress)
	if err != nil {
		log.Fatalf("Failed to generate debug game: %v", err)
	}

	r := result.Result
	log.Printf("Game complete: %d turns, stores %d-%d, winner: %d", r.Turns, r.StoreOne, r.StoreTwo, r.Winner)

	turnsPath, tracePath, err := selfplay.WriteDebugGameParquet(*outDir, result)
	if err != nil {
		log.Fatalf("Failed to write debug game: %v", err)
	}

	log.Printf("Debug game written to: %s (trace %s, %d rows)", turnsPath, tracePath, len(result.Trace))

	frontendURL := fmt.Sprintf("%s/debug/%s", *frontendHost, result.GameID)

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("  Debug game ready! Open in browser:\n")
	fmt.Printf("  %s\n", frontendURL)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
}
