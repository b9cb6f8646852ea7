package main

import (
	"os"

	"github.com/aedi/aedi/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
