package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"tractor.dev/toolkit-go/engine/cli"
)

func migrateCmd() *cli.Command {
	var (
		home    string
		source  string
		threads int
		verbose bool
	)
	cmd := &cli.Command{
		Usage: "migrate",
		Short: "copy all remaining data from source into destination",
		Run: func(ctx *cli.Context, args []string) {
			fsys := openFS(home, source, threads, verbose)
			defer fsys.Close()

			sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fatal(fsys.Migrate(sigCtx))
			log.Println("migration complete; source can be detached")
		},
	}
	cmd.Flags().StringVar(&home, "home", "", "destination home directory")
	cmd.Flags().StringVar(&source, "source", "", "read-only source directory")
	cmd.Flags().IntVar(&threads, "threads", 4, "max concurrent fill workers")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log file operations")
	return cmd
}
