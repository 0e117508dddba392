// Command kalah-mcp serves the position analysis tools over MCP stdio.
// Stdout carries the protocol, so logs go to stderr.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/brensch/kalah/logging"
	"github.com/brensch/kalah/mcpserver"
)

func main() {
	logFormat := flag.String("log-format", "text", "Log format: text, json or pretty")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	if _, err := logging.Setup(os.Stderr, *logFormat, *logLevel); err != nil {
		slog.Error("configure logging", "err", err)
		os.Exit(2)
	}

	slog.Info("MCP stdio server ready", "name", mcpserver.Name, "version", mcpserver.Version)
	if err := server.ServeStdio(mcpserver.New()); err != nil {
		slog.Error("MCP stdio server error", "err", err)
		os.Exit(1)
	}
}
