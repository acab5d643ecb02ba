package main

import (
	"os"

	"github.com/MeKo-Tech/canescan/cmd/canescan/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
