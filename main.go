package main

import "engine-bridge/cmd"

func main() {
	cmd.Execute()
}
