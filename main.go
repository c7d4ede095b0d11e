package main

import "github.com/polystrat/strategy-core/cmd"

func main() {
	cmd.Execute()
}
