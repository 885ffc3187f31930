package main

import (
	"os"

	bazicmder "github.com/papercomputeco/bazi/cmd/bazi"
)

func main() {
	cmd := bazicmder.NewBaziCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
