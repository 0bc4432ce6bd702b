package main

import (
	"log"
	"log/slog"
	"os"

	"tractor.dev/toolkit-go/engine"
	"tractor.dev/toolkit-go/engine/cli"

	"tractor.dev/restorefs"
)

func main() {
	engine.Run(Main{})
}

type Main struct{}

func (m *Main) InitializeCLI(root *cli.Command) {
	root.Usage = "restorefs"
	root.AddCommand(mountCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(statusCmd())
}

func fatal(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// openFS mounts a live restore file system from the shared flags.
func openFS(home, source string, threads int, verbose bool) *restorefs.FS {
	if home == "" || source == "" {
		log.Fatal("both --home and --source are required")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(verbose),
	}))
	fsys, err := restorefs.New(home, &restorefs.Options{
		SourcePath: source,
		Threads:    threads,
		Logger:     logger,
	})
	fatal(err)
	return fsys
}

func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
