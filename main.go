package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nrsim/simtools/simrun"
	"github.com/nrsim/simtools/simruns"
	"github.com/nrsim/simtools/simsync"
	"github.com/nrsim/simtools/util"
)

// Main file for all-in-one build

var helpText = `simtools bundles the simulation helpers in one binary.

Usage:

  simtools <command> [arguments]

The binary can also be symlinked under a command name.

The commands are:

  simsync   copy the project tree to or from a remote host with rsync
  simrun    allocate an output directory and launch a simulation
  simruns   list or serve the records of launched runs
  version   print version information

Use simtools <command> --help for more information about a command.`

func command(name string) util.RunFunc {
	switch name {
	case "simsync", "sync":
		return simsync.Run
	case "simrun", "run":
		return simrun.Run
	case "simruns", "runs":
		return simruns.Run
	}
	return nil
}

func main() {
	// Try to run command based on binary name
	// Might have been symlinked with different names
	if run := command(filepath.Base(os.Args[0])); run != nil {
		util.Runner(os.Args[1:], run)
		return
	}

	if len(os.Args) == 1 {
		fmt.Println(helpText)
		return
	}

	switch os.Args[1] {
	case "-h", "--help", "help":
		fmt.Println(helpText)
		return
	case "version", "--version":
		fmt.Println(util.Version())
		return
	}

	// If that failed, then use the second arg: ./simtools simrun ...
	run := command(os.Args[1])
	if run == nil {
		fmt.Fprintln(os.Stderr, "unknown command")
		os.Exit(1)
	}
	util.Runner(os.Args[2:], run)
}
