package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/brensch/kalah/logging"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", "127.0.0.1:8080", "HTTP listen address")
	dataDirs := fs.String("data-dirs", strings.Join(defaultDataDirs(), ","), "Comma-separated list of directories containing turn parquet files (kalah_turn_v1)")
	debugDir := fs.String("debug-dir", "debug_games", "Directory written by cmd/debuggame")
	staticDir := fs.String("static-dir", "", "Optional directory to serve as SPA static (e.g. viewer/web/dist)")
	logFormat := fs.String("log-format", "text", "Log format: text, json or pretty")
	logLevel := fs.String("log-level", "info", "Log level")
	liveInterval := fs.Duration("live-interval", 2*time.Second, "How often the live feed rescans the data dirs")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if _, err := logging.Setup(os.Stderr, *logFormat, *logLevel); err != nil {
		slog.Error("configure logging", "err", err)
		os.Exit(1)
	}

	roots := parseDataRoots(*dataDirs)
	slog.Info("viewer data roots", "roots", strings.Join(roots, ","), "debug_dir", *debugDir)

	server := NewServer(roots, *debugDir)
	defer server.Close()

	var static http.Handler
	if strings.TrimSpace(*staticDir) != "" {
		static = spaHandler{staticPath: *staticDir, indexPath: filepath.Join(*staticDir, "index.html")}
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.Handler(static),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	server.Start(ctx, *liveInterval)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("viewer API listening", "url", "http://"+*listen)
	if strings.TrimSpace(*staticDir) != "" {
		slog.Info("serving SPA", "dir", *staticDir)
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func defaultDataDirs() []string {
	preferred := []string{
		filepath.Join("data", "generated"),
		"debug_games",
	}
	out := make([]string, 0, len(preferred))
	for _, p := range preferred {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = append(out, filepath.Join("data", "generated"))
	}
	return out
}

func parseDataRoots(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Serve exact static asset if exists; otherwise serve index.html for client-side routing.
	path := filepath.Clean(r.URL.Path)
	if path == "/" {
		http.ServeFile(w, r, h.indexPath)
		return
	}
	candidate := filepath.Join(h.staticPath, strings.TrimPrefix(path, "/"))
	if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
		http.ServeFile(w, r, candidate)
		return
	}
	http.ServeFile(w, r, h.indexPath)
}
