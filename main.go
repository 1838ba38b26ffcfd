package main

import "fablecraft/loom/cmd"

func main() {
	cmd.Execute()
}
