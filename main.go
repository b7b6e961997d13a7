package main

import (
	"os"

	"github.com/roruizf/yahoo-finance-stock-db/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
