package main

import "gsx/cmd"

func main() {
	cmd.Execute()
}
