// Package main is the entry point for globalcart-warehouse.
package main

import (
	"fmt"
	"os"

	"github.com/globalcart/globalcart-warehouse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
