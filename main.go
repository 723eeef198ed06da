package main

import "github.com/tributai/tributai-migrate/cmd"

func main() {
	cmd.Execute()
}
