package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a match config without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadMatchConfig(cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(nil); err != nil {
				return err
			}
			fmt.Printf("%s: ok (%d games, %s vs %s)\n",
				cfgFile, cfg.NumGames, cfg.PlayerA.ResolvedModel(), cfg.PlayerB.ResolvedModel())
			return nil
		},
	}
}
