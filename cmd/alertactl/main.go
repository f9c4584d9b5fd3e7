package main

import (
	"fmt"
	"os"

	"liyu1981.xyz/alerta-mesh/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
