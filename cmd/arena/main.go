// Command arena runs LLM-vs-LLM matches from the terminal, without the
// API server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "arena",
		Short: "Run LLM chess matches from a config file",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "match.yaml", "match config file path")
	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
