// Package simruns inspects the run records left by simrun.
package simruns

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

const helpText = `simruns shows what simrun launched.

Usage:

  simruns list [-o ROOT] RUN...      print the output directories of each run
  simruns serve [-o ROOT] [--addr HOST:PORT]
                                     serve run records as JSON

RUN is a run name below the output root, or a path to a run directory.

Endpoints of serve:
  GET /ping
  GET /runs            names of all runs below the output root
  GET /runs/{name}     records of every output directory of a run

When JWT_SECRET is set, /runs requires an HS256 bearer token signed with it.
Without it serve only listens on loopback addresses.`

func Run(args []string) error {
	if len(args) == 0 ||
		(len(args) == 1 && (args[0] == "--help" || args[0] == "help" || args[0] == "-h")) {
		fmt.Println(helpText)
		return nil
	}
	switch args[0] {
	case "list", "ls":
		return runList(args[1:])
	case "serve":
		return runServe(args[1:])
	}
	return fmt.Errorf("unknown subcommand %q, see --help", args[0])
}

// dirSize returns the total size of the regular files below dir.
func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
