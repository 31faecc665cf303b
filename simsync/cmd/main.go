package main

import (
	"os"

	"github.com/nrsim/simtools/simsync"
	"github.com/nrsim/simtools/util"
)

func main() {
	util.Runner(os.Args[1:], simsync.Run)
}
