package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "task-forest",
		Short: "Task Forest - reconstruct parent/child trees from task transcripts",
		Long: `Task Forest ingests append-only session transcripts and rebuilds the
parent/child forest of tasks. Declared edges are re-validated and missing
edges are recovered by matching each task's instruction against the child
instruction prefixes recorded by candidate parents.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
