package main

import "github.com/ispc-build/ispcb/cmd"

func main() {
	cmd.Execute()
}
