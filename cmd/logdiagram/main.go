package main

import "github.com/atikulmunna/logdiagram/internal/cmd"

func main() {
	cmd.Execute()
}
