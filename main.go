package main

import (
	"log"
	"log/slog"

	"github.com/plugward/plugward/cmd"
	logutil "github.com/plugward/plugward/internal/log"
	"github.com/plugward/plugward/internal/version"
)

func main() {
	if version.VersionHash == "unknown" {
		logutil.SetupGlobalLogger(slog.LevelDebug)
	} else {
		logutil.SetupGlobalLogger(slog.LevelInfo)
	}

	log.Printf("Plugward %s (hash: %s)", version.CurrentVersion, version.VersionHash)

	cmd.Execute()
}
