package main

import "github.com/KaramelBytes/corrloom-cli/cmd"

func main() {
	cmd.Execute()
}
