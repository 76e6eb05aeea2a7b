package main

import (
	// embedded zone database so Asia/Kolkata resolves on minimal images
	_ "time/tzdata"

	"metalbot/internal/cli"
)

func main() {
	cli.Execute()
}
