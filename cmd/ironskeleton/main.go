package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "ironskeleton",
		Short:         "A turn-based narrative engine mixing an authored story graph with generated detours",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPlayCommand(), newValidateCommand(), newServeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
