package main

import (
	"os"

	"github.com/nrsim/simtools/simruns"
	"github.com/nrsim/simtools/util"
)

func main() {
	util.Runner(os.Args[1:], simruns.Run)
}
