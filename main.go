package main

import "github.com/naka-gawa/gitgraph/cmd"

func main() {
	cmd.Execute()
}
