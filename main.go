package main

import (
	"os"

	"github.com/yossideutsch1973/vidpipe/core"
	"github.com/yossideutsch1973/vidpipe/stages"
)

func main() {
	vp := core.NewVidPipe(
		stages.Repo, // standard stage library
	)
	if vp.Run() != nil {
		os.Exit(1)
	}
}
