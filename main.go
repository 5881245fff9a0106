package main

import (
	"motorserve/cmd"

	_ "go.uber.org/automaxprocs"
)

func main() {
	cmd.Start()
}
