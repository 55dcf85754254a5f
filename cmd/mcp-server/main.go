// Package main provides the MCP entry point for CardioPredict.
// It requires no external databases and speaks MCP over stdio.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/cardiopredict-server/internal/config"
	"github.com/cardiopredict-server/internal/mcp"
)

func main() {
	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	log.Printf("Starting CardioPredict MCP Server (history: %s)", cfg.HistoryBackend)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server, err := mcp.NewLiteServer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		log.Printf("MCP server failed: %v", err)
		return
	}

	log.Println("CardioPredict MCP Server stopped")
}
