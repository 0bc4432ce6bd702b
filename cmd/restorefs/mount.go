package main

import (
	"log"
	"os"
	"os/signal"

	"tractor.dev/toolkit-go/engine/cli"

	"tractor.dev/restorefs/fusekit"
)

func mountCmd() *cli.Command {
	var (
		home    string
		source  string
		verbose bool
	)
	cmd := &cli.Command{
		Usage: "mount <mountpoint>",
		Short: "mount the merged live restore namespace over FUSE",
		Run: func(ctx *cli.Context, args []string) {
			if len(args) != 1 {
				log.Fatal("usage: restorefs mount <mountpoint>")
			}

			fsys := openFS(home, source, 0, verbose)
			defer fsys.Close()

			mount, err := fusekit.Mount(fsys, args[0])
			fatal(err)
			defer func() {
				if err := mount.Close(); err != nil {
					log.Fatalf("failed to unmount: %v", err)
				}
			}()

			log.Printf("mounted at %s ...", args[0])

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt)
			<-sigChan
		},
	}
	cmd.Flags().StringVar(&home, "home", "", "destination home directory")
	cmd.Flags().StringVar(&source, "source", "", "read-only source directory")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log file operations")
	return cmd
}
