package main

import (
	"fmt"
	"log/slog"
	"pairchat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
)

const (
	debugPort     = 8081
	debugEndpoint = "/inspect"
)

// startDebugInspector serves a read-only view of the store, only in debug mode.
func startDebugInspector(db *badger.DB, logger *slog.Logger) {
	url := fmt.Sprintf("http://localhost:%d%s?prefix=msg:", debugPort, debugEndpoint)
	logger.Info("Debug Badger inspector available", "url", url)
	database.StartDebugServer(db, debugPort, debugEndpoint, entryMapper)
}

func entryMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	entry := repositories.DescribeEntry([]byte(key), val)
	row.Type = entry.Kind
	row.Namespace = entry.Owner
	row.Detail = entry.Detail
	row.Scores = "-"
	if !entry.At.IsZero() {
		row.Timestamp = entry.At.Format("15:04:05")
	}
	return row
}
