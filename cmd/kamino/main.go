package main

import (
	"fmt"
	"os"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/cmd/kamino/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
