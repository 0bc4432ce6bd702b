package main

import (
	"fmt"
	"path/filepath"

	"tractor.dev/toolkit-go/engine/cli"

	"tractor.dev/restorefs"
	"tractor.dev/restorefs/vfs"
)

func statusCmd() *cli.Command {
	var (
		home    string
		source  string
		verbose bool
	)
	cmd := &cli.Command{
		Usage: "status",
		Short: "show per-file migration progress",
		Run: func(ctx *cli.Context, args []string) {
			fsys := openFS(home, source, 0, verbose)
			defer fsys.Close()

			names, err := fsys.ReadDir(fsys.Home(), "")
			fatal(err)

			for _, name := range names {
				f, err := fsys.OpenFile(filepath.Join(fsys.Home(), name), vfs.TypeData, 0)
				fatal(err)
				lf := f.(*restorefs.File)

				holes := lf.Holes()
				var remaining int64
				for _, h := range holes {
					remaining += h.Length
				}
				size, err := lf.Size()
				fatal(err)
				fatal(f.Close())

				if remaining == 0 {
					fmt.Printf("%-40s %10d bytes  complete\n", name, size)
					continue
				}
				fmt.Printf("%-40s %10d bytes  %d bytes in %d holes remaining\n",
					name, size, remaining, len(holes))
				if verbose {
					for _, h := range holes {
						fmt.Printf("    hole %d-%d\n", h.Offset, h.Offset+h.Length-1)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&home, "home", "", "destination home directory")
	cmd.Flags().StringVar(&source, "source", "", "read-only source directory")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "list individual holes")
	return cmd
}
