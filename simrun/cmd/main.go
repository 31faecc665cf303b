package main

import (
	"os"

	"github.com/nrsim/simtools/simrun"
	"github.com/nrsim/simtools/util"
)

func main() {
	util.Runner(os.Args[1:], simrun.Run)
}
