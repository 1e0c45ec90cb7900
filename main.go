package main

import "github.com/nsyszr/flowcount/cmd"

func main() {
	cmd.Execute()
}
