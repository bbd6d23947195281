package main

import "github.com/leca/scene-archive/internal/cli"

func main() {
	cli.Execute()
}
