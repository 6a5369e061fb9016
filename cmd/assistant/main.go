package main

import (
	_ "time/tzdata"

	"assistantbot/internal/cli"
)

func main() {
	cli.Execute()
}
