package main

import (
	"fmt"
	"os"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/cmd"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/output"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(int(output.ExitCodeError))
	}
}
