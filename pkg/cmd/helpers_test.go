package cmd

import (
	"io"
	"log/slog"
	"time"
)

var testNow = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
