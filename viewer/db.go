package main

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/brensch/kalah/store"
)

// DBCache maintains a cached DuckDB connection that refreshes periodically.
type DBCache struct {
	roots       []string
	refreshRate time.Duration

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time
}

func NewDBCache(roots []string, refreshRate time.Duration) *DBCache {
	return &DBCache{
		roots:       roots,
		refreshRate: refreshRate,
	}
}

// Get returns the cached DB connection, refreshing if needed.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}

	return c.refreshLocked()
}

// Refresh forces the view to be rebuilt so new batch files show up.
func (c *DBCache) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.refreshLocked()
	return err
}

func (c *DBCache) refreshLocked() (*sql.DB, error) {
	start := time.Now()

	newDB, err := openDuckDBWithGlobs(c.roots)
	if err != nil {
		return nil, err
	}

	if c.db != nil {
		_ = c.db.Close()
	}

	c.db = newDB
	c.lastRefresh = time.Now()

	slog.Debug("db cache refreshed", "elapsed", time.Since(start))
	return c.db, nil
}

func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}

// openDuckDBWithGlobs opens an in-memory DuckDB with a turns view over every
// turn parquet file under roots. Batches still being written (tmp/) and trace
// files are skipped.
func openDuckDBWithGlobs(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=4")

	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		glob := filepath.Join(root, "**", "*.parquet")
		globs = append(globs, "'"+escapeSQLString(glob)+"'")
	}

	if len(globs) == 0 {
		_, err := db.Exec(`CREATE OR REPLACE VIEW turns AS
			SELECT * FROM (
				SELECT
					NULL::VARCHAR AS game_id,
					NULL::INTEGER AS turn,
					NULL::INTEGER AS player,
					NULL::VARCHAR AS task,
					NULL::INTEGER AS cutoff,
					NULL::INTEGER[] AS pits,
					NULL::INTEGER AS store_one,
					NULL::INTEGER AS store_two,
					NULL::INTEGER[] AS moves,
					NULL::VARCHAR AS move_names,
					NULL::INTEGER[] AS line,
					NULL::BOOLEAN AS random,
					NULL::VARCHAR AS value,
					NULL::BIGINT AS nodes,
					NULL::BIGINT AS cutoffs,
					NULL::BIGINT AS elapsed_us,
					NULL::INTEGER AS final_one,
					NULL::INTEGER AS final_two,
					NULL::INTEGER AS winner,
					NULL::VARCHAR AS source,
					NULL::VARCHAR AS filename
			) WHERE 1=0`)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	sqlText := `CREATE OR REPLACE VIEW turns AS
		SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
		WHERE NOT contains(filename, '/tmp/batch_')
		  AND NOT ends_with(filename, '_trace.parquet')
		  AND game_id IS NOT NULL`
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func queryGamesTotal(ctx context.Context, db *sql.DB) (int64, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT game_id) FROM turns`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// normalizeSort maps user-facing sort keys to column aliases of the games
// query. The result is concatenated into SQL, so only fixed strings may come
// out of it.
func normalizeSort(sortKey string, sortDir string) (string, string) {
	sk := strings.ToLower(strings.TrimSpace(sortKey))
	sd := strings.ToLower(strings.TrimSpace(sortDir))
	if sd != "asc" && sd != "desc" {
		sd = "desc"
	}
	switch sk {
	case "id", "game", "game_id":
		sk = "game_id"
	case "turns", "turn_count":
		sk = "turn_count"
	case "pits":
		sk = "pits"
	case "winner":
		sk = "winner"
	case "nodes":
		sk = "nodes"
	case "margin":
		sk = "margin"
	case "source":
		sk = "source"
	case "file", "filename":
		sk = "file"
	default:
		sk = "file"
		sd = "desc"
	}
	return sk, sd
}

func makeRelativeToRoots(filename string, roots []string) string {
	fn := strings.TrimSpace(filename)
	if fn == "" {
		return ""
	}
	best := fn
	for _, root := range roots {
		rel, err := filepath.Rel(root, fn)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if len(rel) < len(best) {
			best = rel
		}
	}
	return filepath.ToSlash(best)
}

func queryGames(ctx context.Context, db *sql.DB, roots []string, limit int, offset int, sortKey string, sortDir string) ([]GameSummary, error) {
	sk, sd := normalizeSort(sortKey, sortDir)
	query := `SELECT
			game_id,
			COUNT(*)::INTEGER AS turn_count,
			(MAX(len(pits)) // 2)::INTEGER AS pits,
			COALESCE(MAX(task) FILTER (WHERE player = 1), '') AS one_task,
			COALESCE(MAX(cutoff) FILTER (WHERE player = 1), 0)::INTEGER AS one_cutoff,
			COALESCE(MAX(task) FILTER (WHERE player = 2), '') AS two_task,
			COALESCE(MAX(cutoff) FILTER (WHERE player = 2), 0)::INTEGER AS two_cutoff,
			MAX(final_one)::INTEGER AS final_one,
			MAX(final_two)::INTEGER AS final_two,
			MAX(winner)::INTEGER AS winner,
			SUM(nodes)::BIGINT AS nodes,
			(MAX(final_one) - MAX(final_two))::INTEGER AS margin,
			COALESCE(MIN(source), '') AS source,
			MIN(filename)::VARCHAR AS file
		FROM turns
		GROUP BY game_id
		ORDER BY ` + sk + ` ` + sd + `, game_id ASC
		LIMIT ? OFFSET ?`

	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]GameSummary, 0, min(limit, 1024))
	for rows.Next() {
		var g GameSummary
		var margin int32
		var file string
		if err := rows.Scan(&g.GameID, &g.TurnCount, &g.Pits, &g.OneTask, &g.OneCutoff, &g.TwoTask, &g.TwoCutoff,
			&g.FinalOne, &g.FinalTwo, &g.Winner, &g.Nodes, &margin, &g.Source, &file); err != nil {
			return nil, err
		}
		g.SourceFile = makeRelativeToRoots(file, roots)
		out = append(out, g)
	}
	return out, rows.Err()
}

// queryStats aggregates results per seat and configuration.
func queryStats(ctx context.Context, db *sql.DB) ([]StatsRow, error) {
	rows, err := db.QueryContext(ctx, `WITH games AS (
			SELECT
				game_id,
				MAX(winner) AS winner,
				MAX(task) FILTER (WHERE player = 1) AS one_task,
				MAX(cutoff) FILTER (WHERE player = 1) AS one_cutoff,
				SUM(nodes) FILTER (WHERE player = 1) AS one_nodes,
				MAX(task) FILTER (WHERE player = 2) AS two_task,
				MAX(cutoff) FILTER (WHERE player = 2) AS two_cutoff,
				SUM(nodes) FILTER (WHERE player = 2) AS two_nodes
			FROM turns
			GROUP BY game_id
		),
		seats AS (
			SELECT 1 AS seat, one_task AS task, one_cutoff AS cutoff, winner, one_nodes AS nodes FROM games
			UNION ALL
			SELECT 2 AS seat, two_task AS task, two_cutoff AS cutoff, winner, two_nodes AS nodes FROM games
		)
		SELECT
			seat::INTEGER,
			COALESCE(task, ''),
			COALESCE(cutoff, 0)::INTEGER,
			COUNT(*)::BIGINT,
			(COUNT(*) FILTER (WHERE winner = seat))::BIGINT,
			(COUNT(*) FILTER (WHERE winner = 0))::BIGINT,
			(COUNT(*) FILTER (WHERE winner <> 0 AND winner <> seat))::BIGINT,
			COALESCE(AVG(nodes), 0)::DOUBLE
		FROM seats
		GROUP BY seat, task, cutoff
		ORDER BY seat, task, cutoff`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]StatsRow, 0, 16)
	for rows.Next() {
		var s StatsRow
		if err := rows.Scan(&s.Seat, &s.Task, &s.Cutoff, &s.Games, &s.Wins, &s.Draws, &s.Losses, &s.AvgNodes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// queryTurns returns a game's rows in turn order, or sql.ErrNoRows if the
// game is unknown.
func queryTurns(ctx context.Context, db *sql.DB, gameID string) ([]store.TurnRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT game_id, turn::INTEGER, player::INTEGER, COALESCE(task, ''), cutoff::INTEGER,
		        pits, store_one::INTEGER, store_two::INTEGER, moves, COALESCE(move_names, ''), line,
		        COALESCE(random, false), COALESCE(value, ''), COALESCE(nodes, 0)::BIGINT,
		        COALESCE(cutoffs, 0)::BIGINT, COALESCE(elapsed_us, 0)::BIGINT,
		        final_one::INTEGER, final_two::INTEGER, winner::INTEGER, COALESCE(source, '')
		 FROM turns
		 WHERE game_id = ?
		 ORDER BY turn ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.TurnRow, 0, 64)
	for rows.Next() {
		var r store.TurnRow
		var pitsAny, movesAny, lineAny any
		if err := rows.Scan(&r.GameID, &r.Turn, &r.Player, &r.Task, &r.Cutoff,
			&pitsAny, &r.StoreOne, &r.StoreTwo, &movesAny, &r.MoveNames, &lineAny,
			&r.Random, &r.Value, &r.Nodes, &r.Cutoffs, &r.ElapsedUs,
			&r.FinalOne, &r.FinalTwo, &r.Winner, &r.Source); err != nil {
			return nil, err
		}
		r.Pits = asInt32Slice(pitsAny)
		r.Moves = asInt32Slice(movesAny)
		r.Line = asInt32Slice(lineAny)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, sql.ErrNoRows
	}
	return out, nil
}
